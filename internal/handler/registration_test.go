package handler

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-flow/internal/repository"
)

func newRegistrationCtx(t *testing.T) (*RegistrationHandler, sqlmock.Sqlmock, func(userID uint64, eventID string) (echo.Context, *httptest.ResponseRecorder)) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })

    h := NewRegistrationHandler(repository.NewEventRepo(db), repository.NewRegistrationRepo(db))
    e := echo.New()
    mk := func(userID uint64, eventID string) (echo.Context, *httptest.ResponseRecorder) {
        req := httptest.NewRequest(http.MethodPost, "/", nil)
        rec := httptest.NewRecorder()
        c := e.NewContext(req, rec)
        c.SetParamNames("id")
        c.SetParamValues(eventID)
        c.Set("user_id", float64(userID)) // JWT numeric claims decode as float64
        c.Set("email", "user@example.com")
        return c, rec
    }
    return h, mock, mk
}

func TestRegister_RepeatAnswersOK(t *testing.T) {
    h, mock, mk := newRegistrationCtx(t)

    mock.ExpectBegin()
    mock.ExpectQuery(`SELECT capacity, occupancy FROM events`).
        WillReturnRows(sqlmock.NewRows([]string{"capacity", "occupancy"}).AddRow(10, 5))
    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrations`).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
    mock.ExpectRollback()

    c, rec := mk(42, "7")
    require.NoError(t, h.Register(c))
    assert.Equal(t, http.StatusOK, rec.Code)

    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    assert.Equal(t, true, body["registered"])
}

func TestRegister_SoldOutAnswersConflict(t *testing.T) {
    h, mock, mk := newRegistrationCtx(t)

    mock.ExpectBegin()
    mock.ExpectQuery(`SELECT capacity, occupancy FROM events`).
        WillReturnRows(sqlmock.NewRows([]string{"capacity", "occupancy"}).AddRow(10, 10))
    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrations`).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
    mock.ExpectRollback()

    c, rec := mk(42, "7")
    require.NoError(t, h.Register(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_UnknownEventAnswersNotFound(t *testing.T) {
    h, mock, mk := newRegistrationCtx(t)

    mock.ExpectBegin()
    mock.ExpectQuery(`SELECT capacity, occupancy FROM events`).
        WillReturnRows(sqlmock.NewRows([]string{"capacity", "occupancy"}))
    mock.ExpectRollback()

    c, rec := mk(42, "999")
    require.NoError(t, h.Register(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegister_BadEventID(t *testing.T) {
    h, _, mk := newRegistrationCtx(t)

    c, rec := mk(42, "abc")
    require.NoError(t, h.Register(c))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestRegister_CapacityTwoScenario walks a capacity-2 event through four
// calls: user A registers, A repeats, user B takes the last seat, user C
// is turned away. Occupancy in the scripted rows advances only on the two
// successful calls.
func TestRegister_CapacityTwoScenario(t *testing.T) {
    h, mock, mk := newRegistrationCtx(t)

    forUpdate := func(occupancy int) {
        mock.ExpectBegin()
        mock.ExpectQuery(`SELECT capacity, occupancy FROM events WHERE id = \? FOR UPDATE`).
            WithArgs(uint64(1)).
            WillReturnRows(sqlmock.NewRows([]string{"capacity", "occupancy"}).AddRow(2, occupancy))
    }
    duplicate := func(n int) {
        mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrations`).
            WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
    }
    commitInsert := func(id int64) {
        mock.ExpectExec(`INSERT INTO registrations`).
            WillReturnResult(sqlmock.NewResult(id, 1))
        mock.ExpectExec(`UPDATE events SET occupancy = occupancy \+ 1`).
            WithArgs(uint64(1)).
            WillReturnResult(sqlmock.NewResult(0, 1))
        mock.ExpectCommit()
    }

    // A registers the first seat.
    forUpdate(0)
    duplicate(0)
    commitInsert(201)
    c, rec := mk(1, "1")
    require.NoError(t, h.Register(c))
    assert.Equal(t, http.StatusCreated, rec.Code)

    // A repeats: idempotent answer, no mutation.
    forUpdate(1)
    duplicate(1)
    mock.ExpectRollback()
    c, rec = mk(1, "1")
    require.NoError(t, h.Register(c))
    assert.Equal(t, http.StatusOK, rec.Code)

    // B takes the last seat.
    forUpdate(1)
    duplicate(0)
    commitInsert(202)
    c, rec = mk(2, "1")
    require.NoError(t, h.Register(c))
    assert.Equal(t, http.StatusCreated, rec.Code)

    // C finds the event sold out; occupancy stays at 2.
    forUpdate(2)
    duplicate(0)
    mock.ExpectRollback()
    c, rec = mk(3, "1")
    require.NoError(t, h.Register(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Contains(t, rec.Body.String(), "sold out")
}

func TestStatus_NotRegistered(t *testing.T) {
    h, mock, mk := newRegistrationCtx(t)

    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM registrations`).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

    c, rec := mk(42, "7")
    require.NoError(t, h.Status(c))
    assert.Equal(t, http.StatusOK, rec.Code)

    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    assert.Equal(t, false, body["registered"])
}
