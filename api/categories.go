package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/earshot-audio/earshot/models"
)

const (
	categoriesEndpoint = "/categories"
	scoresEndpoint     = "/user_category_scores"
)

func (c *Client) LoadCategories() ([]models.Category, error) {
	query := url.Values{}
	query.Set("should_display", "true")

	var page models.Page[models.Category]
	if err := c.get(categoriesEndpoint, query, "categories.results", &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) GetUserCategoryScores() ([]models.CategoryScore, error) {
	var page models.Page[models.CategoryScore]
	if err := c.get(scoresEndpoint, nil, "user_category_scores.results", &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

type scorePayload struct {
	CategoryID string  `json:"category_id"`
	Score      float64 `json:"score"`
}

func (c *Client) UpdateUserCategoryScore(categoryID int64, score float64) (models.CategoryScore, error) {
	payload := scorePayload{
		CategoryID: strconv.FormatInt(categoryID, 10),
		Score:      score,
	}
	var result models.CategoryScore
	err := c.post(scoresEndpoint, payload, "user_category_scores", &result)
	return result, err
}

func (c *Client) DeleteUserCategoryScore(scoreID int64) error {
	return c.delete(fmt.Sprintf("%s/%d", scoresEndpoint, scoreID))
}
