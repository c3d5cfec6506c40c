package trunity

import (
	"context"
	"net/url"
	"strconv"
)

const (
	ContentTypeQuestionnaire = "questionnaire"
	ResourceTypeQuestionPool = "question_pool"
)

type created struct {
	ID int `json:"id"`
}

// CreateQuestionPool creates an empty question pool in the book siteID and
// returns its content id. topicID 0 attaches the pool to the book root.
func (c *Client) CreateQuestionPool(ctx context.Context, siteID int, title string, topicID int) (int, error) {
	form := url.Values{
		"content_title": {title},
		"content_type":  {ContentTypeQuestionnaire},
		"resource_type": {ResourceTypeQuestionPool},
	}
	if topicID != 0 {
		form.Set("topic_id", strconv.Itoa(topicID))
	}
	var out created
	if err := c.postForm(ctx, "create question pool", c.endpoint("/sites/%d/contents", siteID), form, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// CreateTopic creates a topic under parentID, or at the book root when
// parentID is 0.
func (c *Client) CreateTopic(ctx context.Context, siteID int, title string, parentID int) (int, error) {
	form := url.Values{"topic_title": {title}}
	if parentID != 0 {
		form.Set("parent_topic_id", strconv.Itoa(parentID))
	}
	var out created
	if err := c.postForm(ctx, "create topic", c.endpoint("/sites/%d/topics", siteID), form, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}
