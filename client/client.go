// Package client is the Go SDK of the course-authoring API.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/instructor"
	"github.com/trezcool/mwalimu/core/position"
)

// APIError is a failed API call. Message is the text to display to the user.
type APIError struct {
	StatusCode int
	Message    string
	Redirect   string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

type envelope struct {
	core.ApiResponse
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"` // object storage routes
}

type Client struct {
	http *resty.Client
}

type options struct {
	token   string
	cookies []*http.Cookie
	hc      *http.Client
	timeout time.Duration
}

type Option func(*options)

// WithToken authenticates every request with a bearer session token.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithCookie sends the session cookie issued by the auth provider.
func WithCookie(cookie *http.Cookie) Option {
	return func(o *options) { o.cookies = append(o.cookies, cookie) }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.hc = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	o := options{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	rc := resty.New()
	if o.hc != nil {
		rc = resty.NewWithClient(o.hc)
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(o.timeout).
		SetHeader("Accept", "application/json").
		SetCookies(o.cookies)
	if o.token != "" {
		rc.SetAuthToken(o.token)
	}
	return &Client{http: rc}
}

// do sends the request and decodes the `data` of a success envelope into out (when not nil).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	env := new(envelope)
	req := c.http.R().
		SetContext(ctx).
		SetResult(env).
		SetError(env)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() {
		apiErr := &APIError{
			StatusCode: resp.StatusCode(),
			Message:    env.Message,
			Redirect:   env.Redirect,
			Fields:     env.Fields,
		}
		if apiErr.Message == "" {
			apiErr.Message = env.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if err = json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "decoding response data")
		}
	}
	return nil
}

func coursePath(courseID string) string {
	return "/api/instructor/courses/" + courseID
}

func chapterPath(courseID, chapterID string) string {
	return coursePath(courseID) + "/chapters/" + chapterID
}

func lessonPath(courseID, chapterID, lessonID string) string {
	return chapterPath(courseID, chapterID) + "/lessons/" + lessonID
}

func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return errors.Wrap(err, "GET /health")
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
	}
	return nil
}

// Courses

type CourseQuery struct {
	Search   string
	Status   string
	Ordering string // e.g. "title,-created_at"
}

func (c *Client) ListCourses(ctx context.Context, q CourseQuery) ([]course.Course, error) {
	params := make(url.Values)
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Ordering != "" {
		params.Set("ordering", q.Ordering)
	}
	path := "/api/instructor/courses"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var courses []course.Course
	err := c.do(ctx, http.MethodGet, path, nil, &courses)
	return courses, err
}

func (c *Client) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	var crs course.Course
	err := c.do(ctx, http.MethodPost, "/api/instructor/courses", nc, &crs)
	return crs, err
}

// GetCourse returns the course with its chapters and lessons ordered by position.
func (c *Client) GetCourse(ctx context.Context, courseID string) (course.Course, error) {
	var crs course.Course
	err := c.do(ctx, http.MethodGet, coursePath(courseID), nil, &crs)
	return crs, err
}

func (c *Client) UpdateCourse(ctx context.Context, courseID string, uc course.UpdateCourse) (course.Course, error) {
	var crs course.Course
	err := c.do(ctx, http.MethodPut, coursePath(courseID), uc, &crs)
	return crs, err
}

func (c *Client) DeleteCourse(ctx context.Context, courseID string) error {
	return c.do(ctx, http.MethodDelete, coursePath(courseID), nil, nil)
}

// Chapters

func (c *Client) CreateChapter(ctx context.Context, courseID string, nc course.NewChapter) (course.Chapter, error) {
	var ch course.Chapter
	err := c.do(ctx, http.MethodPost, coursePath(courseID)+"/chapters", nc, &ch)
	return ch, err
}

func (c *Client) UpdateChapter(ctx context.Context, courseID, chapterID string, uc course.UpdateChapter) (course.Chapter, error) {
	var ch course.Chapter
	err := c.do(ctx, http.MethodPut, chapterPath(courseID, chapterID), uc, &ch)
	return ch, err
}

func (c *Client) ReorderChapters(ctx context.Context, courseID string, as []position.Assignment) error {
	return c.do(ctx, http.MethodPut, coursePath(courseID)+"/chapters/reorder", course.Reorder{Chapters: as}, nil)
}

func (c *Client) DeleteChapter(ctx context.Context, courseID, chapterID string) error {
	return c.do(ctx, http.MethodDelete, chapterPath(courseID, chapterID), nil, nil)
}

// Lessons

func (c *Client) CreateLesson(ctx context.Context, courseID, chapterID string, nl course.NewLesson) (course.Lesson, error) {
	var ls course.Lesson
	err := c.do(ctx, http.MethodPost, chapterPath(courseID, chapterID)+"/lessons", nl, &ls)
	return ls, err
}

func (c *Client) GetLesson(ctx context.Context, courseID, chapterID, lessonID string) (course.Lesson, error) {
	var ls course.Lesson
	err := c.do(ctx, http.MethodGet, lessonPath(courseID, chapterID, lessonID), nil, &ls)
	return ls, err
}

func (c *Client) UpdateLesson(ctx context.Context, courseID, chapterID, lessonID string, ul course.UpdateLesson) (course.Lesson, error) {
	var ls course.Lesson
	err := c.do(ctx, http.MethodPut, lessonPath(courseID, chapterID, lessonID), ul, &ls)
	return ls, err
}

func (c *Client) ReorderLessons(ctx context.Context, courseID, chapterID string, as []position.Assignment) error {
	return c.do(ctx, http.MethodPut, chapterPath(courseID, chapterID)+"/lessons/reorder", course.Reorder{Lessons: as}, nil)
}

func (c *Client) DeleteLesson(ctx context.Context, courseID, chapterID, lessonID string) error {
	return c.do(ctx, http.MethodDelete, lessonPath(courseID, chapterID, lessonID), nil, nil)
}

// Uploads

// DeleteObject removes an uploaded file from the bucket.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/api/s3/delete", map[string]string{"key": key}, nil)
}

// Instructors

func (c *Client) InviteInstructor(ctx context.Context, email string) (instructor.Instructor, error) {
	var ins instructor.Instructor
	err := c.do(ctx, http.MethodPost, "/api/admin/instructors/invite", instructor.Invitation{Email: email}, &ins)
	return ins, err
}

func (c *Client) ListInstructors(ctx context.Context) ([]instructor.Instructor, error) {
	var records []instructor.Instructor
	err := c.do(ctx, http.MethodGet, "/api/admin/instructors", nil, &records)
	return records, err
}
