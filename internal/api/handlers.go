package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lendit/internal/database"
	"lendit/internal/models"
)

// statusForError maps store/engine sentinels onto HTTP status codes. The
// categories are stable so clients can tell a conflict (retrying with a
// different interval may help) from a validation failure.
func statusForError(err error) int {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrItemNotFound),
		errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrInvalidInterval),
		errors.Is(err, database.ErrOwnBooking),
		errors.Is(err, database.ErrItemUnavailable),
		errors.Is(err, database.ErrDateTooFar),
		errors.Is(err, database.ErrEmptyComment),
		errors.Is(err, database.ErrEmptyDescription),
		errors.Is(err, database.ErrNoCompletedRental),
		errors.Is(err, database.ErrEmailInUse):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, database.ErrNotWaiting),
		errors.Is(err, database.ErrTimeConflict),
		errors.Is(err, database.ErrConcurrentModification):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

func (s *HTTPServer) identity(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := callerID(r, s.cfg.API.Auth.HeaderUserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return 0, false
	}
	return id, true
}

// allowMutation applies the per-user booking rate limit when a cache is wired.
func (s *HTTPServer) allowMutation(w http.ResponseWriter, r *http.Request, userID int64) bool {
	if s.cache == nil {
		return true
	}
	window := time.Duration(s.cfg.Booking.RateWindow) * time.Second
	allowed, err := s.cache.CheckRateLimit(r.Context(), userID, s.cfg.Booking.RateLimit, window)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rate limit check failed")
		return true
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, "too many booking requests")
		return false
	}
	return true
}

func pathID(path, prefix string) (int64, string, error) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	parts := strings.SplitN(rest, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid id: %s", parts[0])
	}
	if len(parts) == 2 {
		return id, parts[1], nil
	}
	return id, "", nil
}

// --- bookings ---

type createBookingRequest struct {
	ItemID int64     `json:"item_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listBookerBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}
	if !s.allowMutation(w, r, userID) {
		return
	}

	var body createBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), userID, body.ItemID, body.Start, body.End)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) listBookerBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	filter, err := models.ParseListFilter(r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.bookings.ListByBooker(r.Context(), userID, filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": emptyIfNil(bookings)})
}

func (s *HTTPServer) handleOwnerBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	filter, err := models.ParseListFilter(r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.bookings.ListByOwner(r.Context(), userID, filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": emptyIfNil(bookings)})
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/api/v1/bookings/")
	if err != nil || rest != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getBooking(w, r, id)
	case http.MethodPatch:
		s.decideBooking(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) getBooking(w http.ResponseWriter, r *http.Request, id int64) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	booking, err := s.bookings.GetBookingByID(r.Context(), id, userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) decideBooking(w http.ResponseWriter, r *http.Request, id int64) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}
	if !s.allowMutation(w, r, userID) {
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("approved"))
	approved, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid approved value: %s", raw))
		return
	}

	booking, err := s.bookings.DecideBooking(r.Context(), id, userID, approved)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBookingsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}
	if _, ok := s.identity(w, r); !ok {
		return
	}

	from, to, err := exportRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := s.exporter.WriteRange(r.Context(), w, from, to); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}

func exportRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 2, 0)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %s", raw)
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %s", raw)
		}
		to = parsed
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to must be after from")
	}
	return from, to, nil
}

// --- items ---

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   *int64 `json:"request_id"`
}

func (s *HTTPServer) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createItem(w, r)
	case http.MethodGet:
		s.listOwnItems(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	var body itemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item := &models.Item{
		OwnerID:     userID,
		Name:        body.Name,
		Description: body.Description,
		Available:   body.Available,
		RequestID:   body.RequestID,
	}
	if err := s.items.CreateItem(r.Context(), item); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *HTTPServer) listOwnItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	items, err := s.items.ListByOwner(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyIfNilItems(items)})
}

// handleItemSearch is the free-text catalog search: available items whose
// name or description contains the text.
func (s *HTTPServer) handleItemSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.identity(w, r); !ok {
		return
	}

	items, err := s.items.SearchItems(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": emptyIfNilItems(items)})
}

func (s *HTTPServer) handleItemByID(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/api/v1/items/")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		s.getItem(w, r, id)
	case rest == "" && r.Method == http.MethodPatch:
		s.updateItem(w, r, id)
	case rest == "comments" && r.Method == http.MethodPost:
		s.addComment(w, r, id)
	case rest == "comments" && r.Method == http.MethodGet:
		s.listComments(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) getItem(w http.ResponseWriter, r *http.Request, id int64) {
	item, err := s.items.GetItem(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := map[string]any{"item": item}
	if windows, err := s.bookings.ItemBookingWindows(r.Context(), id); err == nil {
		resp["last_booking"] = windows.Last
		resp["next_booking"] = windows.Next
	}
	if comments, err := s.comments.ListByItem(r.Context(), id); err == nil {
		resp["comments"] = comments
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) updateItem(w http.ResponseWriter, r *http.Request, id int64) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	var body itemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item := &models.Item{
		ID:          id,
		Name:        body.Name,
		Description: body.Description,
		Available:   body.Available,
	}
	if err := s.items.UpdateItem(r.Context(), userID, item); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// --- comments ---

type commentRequest struct {
	Text string `json:"text"`
}

func (s *HTTPServer) addComment(w http.ResponseWriter, r *http.Request, itemID int64) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	var body commentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	comment, err := s.comments.AddComment(r.Context(), userID, itemID, body.Text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *HTTPServer) listComments(w http.ResponseWriter, r *http.Request, itemID int64) {
	comments, err := s.comments.ListByItem(r.Context(), itemID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// --- users ---

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body userRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.Email) == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	user := &models.User{Name: body.Name, Email: body.Email}
	if err := s.users.CreateUser(r.Context(), user); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/api/v1/users/")
	if err != nil || rest != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getUser(w, r, id)
	case http.MethodPatch:
		s.updateUser(w, r, id)
	case http.MethodDelete:
		s.deleteUser(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) getUser(w http.ResponseWriter, r *http.Request, id int64) {
	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// updateUser applies a partial update: omitted fields keep their values.
func (s *HTTPServer) updateUser(w http.ResponseWriter, r *http.Request, id int64) {
	var body userRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.users.UpdateUser(r.Context(), id, body.Name, body.Email)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) deleteUser(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.users.DeleteUser(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- item requests ---

type itemRequestBody struct {
	Description string `json:"description"`
}

func (s *HTTPServer) handleRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var body itemRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		request, err := s.requests.CreateRequest(r.Context(), userID, body.Description)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, request)
	case http.MethodGet:
		requests, err := s.requests.ListOwnRequests(r.Context(), userID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requests": emptyIfNilRequests(requests)})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleOtherRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	requests, err := s.requests.ListOtherRequests(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": emptyIfNilRequests(requests)})
}

func (s *HTTPServer) handleRequestByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, rest, err := pathID(r.URL.Path, "/api/v1/requests/")
	if err != nil || rest != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	userID, ok := s.identity(w, r)
	if !ok {
		return
	}

	request, err := s.requests.GetRequest(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func emptyIfNil(bookings []*models.Booking) []*models.Booking {
	if bookings == nil {
		return []*models.Booking{}
	}
	return bookings
}

func emptyIfNilItems(items []*models.Item) []*models.Item {
	if items == nil {
		return []*models.Item{}
	}
	return items
}

func emptyIfNilRequests(requests []*models.ItemRequest) []*models.ItemRequest {
	if requests == nil {
		return []*models.ItemRequest{}
	}
	return requests
}
