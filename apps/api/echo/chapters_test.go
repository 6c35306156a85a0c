package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mwalimu/core"
	"github.com/trezcool/mwalimu/core/course"
	"github.com/trezcool/mwalimu/core/position"
)

func TestChapterAPI_create(t *testing.T) {
	reset()
	crs := seedCourse(t, teacher, "Chaptered Course", 0, 0)
	path := "/api/instructor/courses/" + crs.ID + "/chapters"
	token := getToken(t, teacher)

	for i, title := range []string{"Getting started", "Going further", "Wrapping up"} {
		req, rec := newAuthRequest(http.MethodPost, path, token, marchallObj(t, course.NewChapter{Title: title}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"message":"Chapter created successfully"`)

		var ch course.Chapter
		decodeData(t, rec, &ch)
		assert.Equal(t, i+1, ch.Position)
		assert.Equal(t, crs.ID, ch.CourseID)
	}
	assert.Equal(t, []string{
		core.CourseEditPath(crs.ID), core.CourseEditPath(crs.ID), core.CourseEditPath(crs.ID),
	}, pages.Paths())

	runHTTPTests(t, []httpTest{
		{
			name:     "blank title",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"title":"  "}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, failure("Invalid data", map[string]string{"title": "this field is required"})),
		},
	})
}

func TestChapterAPI_update(t *testing.T) {
	reset()
	crs := seedCourse(t, teacher, "Renamed Course", 2, 0)
	foreign := seedCourse(t, teacher, "Another Course", 1, 0)
	ch := crs.Chapters[1]

	req, rec := newAuthRequest(
		http.MethodPut, "/api/instructor/courses/"+crs.ID+"/chapters/"+ch.ID,
		getToken(t, teacher), []byte(`{"title":"Renamed chapter"}`),
	)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := getCourse(t, crs.ID)
	assert.Equal(t, "Renamed chapter", got.Chapters[1].Title)
	assert.Equal(t, 2, got.Chapters[1].Position)

	runHTTPTests(t, []httpTest{
		{
			name:     "chapter of another course",
			method:   http.MethodPut,
			path:     "/api/instructor/courses/" + crs.ID + "/chapters/" + foreign.Chapters[0].ID,
			body:     []byte(`{"title":"Moved?"}`),
			token:    getToken(t, teacher),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, failure("Chapter not found in course")),
		},
	})
}

func TestChapterAPI_reorder(t *testing.T) {
	reset()
	crs := seedCourse(t, teacher, "Reordered Course", 3, 0)
	foreign := seedCourse(t, teacher, "Foreign Course", 1, 0)
	ids := chapterIDs(crs)
	path := "/api/instructor/courses/" + crs.ID + "/chapters/reorder"
	token := getToken(t, teacher)

	moved := position.Move(ids, 0, 2)
	req, rec := newAuthRequest(http.MethodPut, path, token, marchallObj(t, course.Reorder{Chapters: position.Resequence(moved)}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok, err := jsonBytesEqual(rec.Body.Bytes(), marchallObj(t, core.Success("Chapters reordered successfully")))
	require.NoError(t, err)
	assert.True(t, ok, rec.Body.String())
	assert.Equal(t, []string{core.CourseEditPath(crs.ID)}, pages.Paths())
	assert.Equal(t, moved, chapterIDs(getCourse(t, crs.ID)))

	reorder := func(as ...position.Assignment) []byte {
		return marchallObj(t, course.Reorder{Chapters: as})
	}
	runHTTPTests(t, []httpTest{
		{
			name:     "empty",
			method:   http.MethodPut,
			path:     path,
			body:     []byte(`{"chapters":[]}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, failure("No chapters provided for reordering")),
		},
		{
			name:   "missing sibling",
			method: http.MethodPut,
			path:   path,
			body: reorder(
				position.Assignment{ID: ids[0], Position: 1},
				position.Assignment{ID: ids[1], Position: 2},
			),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, failure(toastOf(position.ErrMissingID))),
		},
		{
			name:   "foreign chapter",
			method: http.MethodPut,
			path:   path,
			body: reorder(
				position.Assignment{ID: ids[0], Position: 1},
				position.Assignment{ID: ids[1], Position: 2},
				position.Assignment{ID: foreign.Chapters[0].ID, Position: 3},
			),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, failure(toastOf(position.ErrUnknownID))),
		},
		{
			name:   "gap",
			method: http.MethodPut,
			path:   path,
			body: reorder(
				position.Assignment{ID: ids[0], Position: 1},
				position.Assignment{ID: ids[1], Position: 2},
				position.Assignment{ID: ids[2], Position: 4},
			),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, failure(toastOf(position.ErrBadPosition))),
		},
		{
			name:   "zero position",
			method: http.MethodPut,
			path:   path,
			body: reorder(
				position.Assignment{ID: ids[0], Position: 0},
				position.Assignment{ID: ids[1], Position: 1},
				position.Assignment{ID: ids[2], Position: 2},
			),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, failure("Invalid data", map[string]string{"position": "position must be 1 or greater"})),
		},
	})

	// rejected reorders change nothing
	assert.Equal(t, moved, chapterIDs(getCourse(t, crs.ID)))
	assert.Len(t, getCourseOf(t, teacher, foreign.ID).Chapters, 1)
}

func TestChapterAPI_destroy(t *testing.T) {
	reset()
	crs := seedCourse(t, teacher, "Shrinking Course", 3, 2)
	foreign := seedCourse(t, teacher, "Foreign Course", 1, 0)
	ids := chapterIDs(crs)
	base := "/api/instructor/courses/" + crs.ID + "/chapters/"

	runHTTPTests(t, []httpTest{
		{
			name:     "chapter of another course",
			method:   http.MethodDelete,
			path:     base + foreign.Chapters[0].ID,
			token:    getToken(t, teacher),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, failure("Chapter not found in course")),
		},
		{
			name:     "deleted",
			method:   http.MethodDelete,
			path:     base + ids[0],
			token:    getToken(t, teacher),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, core.Success("Chapter deleted successfully")),
		},
	})

	got := getCourse(t, crs.ID)
	require.Equal(t, ids[1:], chapterIDs(got))
	for i, ch := range got.Chapters {
		assert.Equal(t, i+1, ch.Position, "resequenced")
	}
	assert.Len(t, getCourseOf(t, teacher, foreign.ID).Chapters, 1)
}

func toastOf(err error) string {
	msg := err.Error()
	return string(msg[0]-'a'+'A') + msg[1:]
}

func getCourseOf(t *testing.T, sess core.Session, id string) course.Course {
	t.Helper()
	crs, err := crsSvc.GetCourse(testCtx, sess, id)
	require.NoError(t, err)
	return crs
}
