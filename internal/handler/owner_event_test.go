package handler

import (
    "bytes"
    "mime/multipart"
    "net/http"
    "net/http/httptest"
    "os"
    "strings"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-flow/internal/repository"
    "github.com/iliyamo/event-flow/internal/storage"
)

func newOwnerCtx(t *testing.T) (*OwnerHandler, sqlmock.Sqlmock, *echo.Echo) {
    h, mock, e, _ := newOwnerCtxDir(t)
    return h, mock, e
}

func newOwnerCtxDir(t *testing.T) (*OwnerHandler, sqlmock.Sqlmock, *echo.Echo, string) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })

    dir := t.TempDir()
    store, err := storage.NewStore(dir, "/uploads")
    require.NoError(t, err)

    h := NewOwnerHandler(repository.NewEventRepo(db), repository.NewRegistrationRepo(db), store)
    return h, mock, echo.New(), dir
}

func ownerRequest(e *echo.Echo, method, body string) (echo.Context, *httptest.ResponseRecorder) {
    req := httptest.NewRequest(method, "/", strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", float64(42))
    return c, rec
}

func TestCreateEvent_Valid(t *testing.T) {
    h, mock, e := newOwnerCtx(t)

    mock.ExpectExec(`INSERT INTO events`).
        WithArgs("Go Meetup", sqlmock.AnyArg(), "Berlin", "Monthly meetup", uint32(50),
            sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(11, 1))

    c, rec := ownerRequest(e, http.MethodPost,
        `{"name":"Go Meetup","starts_at":"2026-09-15T18:00:00Z","location":"Berlin","description":"Monthly meetup","capacity":50}`)
    require.NoError(t, h.CreateEvent(c))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.Contains(t, rec.Body.String(), `"id":11`)
    assert.Contains(t, rec.Body.String(), `"remaining":50`)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEvent_RejectsEmptyName(t *testing.T) {
    h, _, e := newOwnerCtx(t)

    c, rec := ownerRequest(e, http.MethodPost,
        `{"name":"   ","starts_at":"2026-09-15T18:00:00Z","capacity":50}`)
    require.NoError(t, h.CreateEvent(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEvent_RejectsZeroCapacity(t *testing.T) {
    h, _, e := newOwnerCtx(t)

    c, rec := ownerRequest(e, http.MethodPost,
        `{"name":"Go Meetup","starts_at":"2026-09-15T18:00:00Z","capacity":0}`)
    require.NoError(t, h.CreateEvent(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEvent_RejectsBadTimestamp(t *testing.T) {
    h, _, e := newOwnerCtx(t)

    c, rec := ownerRequest(e, http.MethodPost,
        `{"name":"Go Meetup","starts_at":"next tuesday","capacity":50}`)
    require.NoError(t, h.CreateEvent(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateEvent_CapacityConflict(t *testing.T) {
    h, mock, e := newOwnerCtx(t)

    mock.ExpectBegin()
    mock.ExpectQuery(`SELECT owner_id, occupancy FROM events WHERE id = \? FOR UPDATE`).
        WillReturnRows(sqlmock.NewRows([]string{"owner_id", "occupancy"}).AddRow(42, 30))
    mock.ExpectRollback()

    c, rec := ownerRequest(e, http.MethodPatch, `{"capacity":20}`)
    c.SetParamNames("id")
    c.SetParamValues("5")
    require.NoError(t, h.UpdateEvent(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateEvent_ForeignEventForbidden(t *testing.T) {
    h, mock, e := newOwnerCtx(t)

    mock.ExpectBegin()
    mock.ExpectQuery(`SELECT owner_id, occupancy FROM events WHERE id = \? FOR UPDATE`).
        WillReturnRows(sqlmock.NewRows([]string{"owner_id", "occupancy"}).AddRow(77, 0))
    mock.ExpectRollback()

    c, rec := ownerRequest(e, http.MethodPatch, `{"name":"Taken Over"}`)
    c.SetParamNames("id")
    c.SetParamValues("5")
    require.NoError(t, h.UpdateEvent(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func imageUploadRequest(t *testing.T, e *echo.Echo, eventID string) (echo.Context, *httptest.ResponseRecorder) {
    t.Helper()
    var body bytes.Buffer
    mw := multipart.NewWriter(&body)
    part, err := mw.CreateFormFile("image", "poster.png")
    require.NoError(t, err)
    _, err = part.Write([]byte("fake png bytes"))
    require.NoError(t, err)
    require.NoError(t, mw.Close())

    req := httptest.NewRequest(http.MethodPost, "/", &body)
    req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", float64(42))
    c.SetParamNames("id")
    c.SetParamValues(eventID)
    return c, rec
}

func uploadEventRows() *sqlmock.Rows {
    return sqlmock.NewRows([]string{
        "id", "name", "starts_at", "location", "description",
        "capacity", "occupancy", "image_url", "owner_id", "created_at", "updated_at",
    })
}

func TestUploadImage_ForeignEventStoresNothing(t *testing.T) {
    h, mock, e, dir := newOwnerCtxDir(t)

    now := time.Now().UTC()
    mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \?`).
        WithArgs(uint64(5)).
        WillReturnRows(uploadEventRows().
            AddRow(5, "Not Mine", now, "Berlin", "", 100, 0, nil, 77, now, now))

    c, rec := imageUploadRequest(t, e, "5")
    require.NoError(t, h.UploadImage(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)

    entries, err := os.ReadDir(dir)
    require.NoError(t, err)
    assert.Empty(t, entries, "rejected upload must not leave a file behind")
}

func TestUploadImage_RemovesFileWhenUpdateLosesRace(t *testing.T) {
    h, mock, e, dir := newOwnerCtxDir(t)

    // Ownership check passes, then the event vanishes before the locked
    // update. The stored file must be cleaned up again.
    now := time.Now().UTC()
    mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \?`).
        WithArgs(uint64(5)).
        WillReturnRows(uploadEventRows().
            AddRow(5, "Mine", now, "Berlin", "", 100, 0, nil, 42, now, now))
    mock.ExpectBegin()
    mock.ExpectQuery(`SELECT owner_id, occupancy FROM events WHERE id = \? FOR UPDATE`).
        WithArgs(uint64(5)).
        WillReturnRows(sqlmock.NewRows([]string{"owner_id", "occupancy"}))
    mock.ExpectRollback()

    c, rec := imageUploadRequest(t, e, "5")
    require.NoError(t, h.UploadImage(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)

    entries, err := os.ReadDir(dir)
    require.NoError(t, err)
    assert.Empty(t, entries)
}

func TestDeleteEvent_NotFound(t *testing.T) {
    h, mock, e := newOwnerCtx(t)

    mock.ExpectQuery(`SELECT owner_id FROM events WHERE id = \?`).
        WillReturnRows(sqlmock.NewRows([]string{"owner_id"}))

    c, rec := ownerRequest(e, http.MethodDelete, "")
    c.SetParamNames("id")
    c.SetParamValues("5")
    require.NoError(t, h.DeleteEvent(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
}
