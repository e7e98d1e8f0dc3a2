// Package plannerapi is the HTTP client of the planner persistence API.
package plannerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"lessonplanner/internal/model"
	"lessonplanner/internal/prefs"
	"lessonplanner/internal/schedule"
)

const cachePrefix = "planner:"

// Client calls the planner API. Every failure is returned as
// *model.TransportError.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client with baseURL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints. Writes
// invalidate the affected class's cached reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// GetClass fetches a class with its weekly schedule.
func (c *Client) GetClass(ctx context.Context, classID string) (*model.Class, error) {
	endpoint := fmt.Sprintf("%s/classes/%s", c.baseURL, url.PathEscape(classID))
	cacheKey := cachePrefix + "class:" + classID
	var class model.Class

	if c.readCache(ctx, cacheKey, &class) {
		return &class, nil
	}
	if err := c.doGet(ctx, "get class", endpoint, &class); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, class)
	return &class, nil
}

// ListLessons returns the class's lessons dated within [from, to].
func (c *Client) ListLessons(ctx context.Context, classID string, from, to time.Time) ([]model.LessonRecord, error) {
	start, end := schedule.FormatDate(from), schedule.FormatDate(to)
	endpoint := fmt.Sprintf("%s/lessons?class_id=%s&start=%s&end=%s",
		c.baseURL, url.QueryEscape(classID), start, end)
	cacheKey := fmt.Sprintf("%slessons:%s:%s:%s", cachePrefix, classID, start, end)
	var dtos []model.LessonDTO

	if !c.readCache(ctx, cacheKey, &dtos) {
		if err := c.doGet(ctx, "list lessons", endpoint, &dtos); err != nil {
			return nil, err
		}
		c.writeCache(ctx, cacheKey, dtos)
	}

	lessons := make([]model.LessonRecord, 0, len(dtos))
	for _, dto := range dtos {
		l, err := dto.Lesson()
		if err != nil {
			// malformed rows are dropped, the rest still render
			continue
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

// GetWorkplan returns the class's workplan entries within [from, to].
func (c *Client) GetWorkplan(ctx context.Context, classID string, from, to time.Time) ([]model.WorkplanEntry, error) {
	start, end := schedule.FormatDate(from), schedule.FormatDate(to)
	endpoint := fmt.Sprintf("%s/workplan/%s?start=%s&end=%s", c.baseURL, url.PathEscape(classID), start, end)
	cacheKey := fmt.Sprintf("%sworkplan:%s:%s:%s", cachePrefix, classID, start, end)
	var dtos []model.WorkplanEntryDTO

	if !c.readCache(ctx, cacheKey, &dtos) {
		if err := c.doGet(ctx, "get workplan", endpoint, &dtos); err != nil {
			return nil, err
		}
		c.writeCache(ctx, cacheKey, dtos)
	}

	entries := make([]model.WorkplanEntry, 0, len(dtos))
	for _, dto := range dtos {
		e, err := dto.Entry(classID)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// BulkCreateWorkplan creates or overwrites entries in one request and returns
// how many were written.
func (c *Client) BulkCreateWorkplan(ctx context.Context, classID string, entries []model.WorkplanEntry) (int, error) {
	endpoint := fmt.Sprintf("%s/workplan/%s/bulk", c.baseURL, url.PathEscape(classID))
	body := model.BulkWorkplanRequest{Entries: make([]model.WorkplanEntryDTO, len(entries))}
	for i, e := range entries {
		body.Entries[i] = model.WorkplanToDTO(e)
	}

	var resp model.BulkWorkplanResponse
	if err := c.doJSON(ctx, "bulk create workplan", http.MethodPost, endpoint, body, &resp); err != nil {
		return 0, err
	}
	c.invalidate(ctx, "workplan:"+classID+":*")
	return resp.Created, nil
}

// CreateLesson creates a lesson.
func (c *Client) CreateLesson(ctx context.Context, lesson model.LessonRecord) (*model.LessonRecord, error) {
	endpoint := c.baseURL + "/lessons"
	var dto model.LessonDTO
	if err := c.doJSON(ctx, "create lesson", http.MethodPost, endpoint, model.LessonToDTO(lesson), &dto); err != nil {
		return nil, err
	}
	c.invalidate(ctx, "lessons:"+lesson.ClassID+":*")
	return c.lessonFrom("create lesson", dto)
}

// UpdateLesson applies patch to lesson id.
func (c *Client) UpdateLesson(ctx context.Context, id string, patch model.LessonPatch) (*model.LessonRecord, error) {
	endpoint := fmt.Sprintf("%s/lessons/%s", c.baseURL, url.PathEscape(id))
	var dto model.LessonDTO
	if err := c.doJSON(ctx, "update lesson", http.MethodPut, endpoint, patch, &dto); err != nil {
		return nil, err
	}
	c.invalidate(ctx, "lessons:*")
	return c.lessonFrom("update lesson", dto)
}

// RescheduleLesson moves a lesson to date. Only the date is sent.
func (c *Client) RescheduleLesson(ctx context.Context, id string, date time.Time) (*model.LessonRecord, error) {
	return c.UpdateLesson(ctx, id, model.ReschedulePatch(date))
}

// DeleteLesson removes a lesson.
func (c *Client) DeleteLesson(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/lessons/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return &model.TransportError{Op: "delete lesson", Err: err}
	}
	c.addHeaders(req)
	if err := c.do("delete lesson", req, nil); err != nil {
		return err
	}
	c.invalidate(ctx, "lessons:*")
	return nil
}

// GetPreferences fetches a user's calendar preferences. The server answers
// with defaults for users without stored preferences.
func (c *Client) GetPreferences(ctx context.Context, userID string) (*prefs.Preferences, error) {
	endpoint := fmt.Sprintf("%s/preferences/%s", c.baseURL, url.PathEscape(userID))
	var p prefs.Preferences
	if err := c.doGet(ctx, "get preferences", endpoint, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// HealthCheck checks if the API is available.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) lessonFrom(op string, dto model.LessonDTO) (*model.LessonRecord, error) {
	l, err := dto.Lesson()
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &l, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) invalidate(ctx context.Context, pattern string) {
	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, cachePrefix+pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = c.redis.Del(ctx, keys...).Err()
	}
}

func (c *Client) doGet(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	c.addHeaders(req)
	return c.do(op, req, out)
}

func (c *Client) doJSON(ctx context.Context, op, method, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
		te := &model.TransportError{Op: op, StatusCode: resp.StatusCode}
		if body.Error != "" {
			te.Err = errors.New(body.Error)
		}
		return te
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &model.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
