package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Unbanked0/btcmap-api/internal/auth"
	"github.com/Unbanked0/btcmap-api/internal/domain"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

const defaultListLimit = 1000

func parseListQuery(r *http.Request) (*time.Time, int, error) {
	query := r.URL.Query()

	var since *time.Time
	if raw := strings.TrimSpace(query.Get("updated_since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid updated_since: %v", err)
		}
		since = &parsed
	}

	limit := defaultListLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, 0, errors.New("limit must be a positive integer")
		}
		limit = parsed
	}
	return since, limit, nil
}

func (s *Server) handleListElements(w http.ResponseWriter, r *http.Request) {
	since, limit, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var elements []domain.Element
	if since != nil {
		elements, err = s.store.Elements().SelectUpdatedSince(r.Context(), *since, limit)
	} else {
		elements, err = s.store.Elements().SelectAll(r.Context())
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("list elements: %v", err), http.StatusInternalServerError)
		return
	}

	views := make([]elementView, 0, len(elements))
	for _, e := range elements {
		views = append(views, toElementView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetElement(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseElementID(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	element, err := s.store.Elements().SelectByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "element not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("get element: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toElementView(element))
}

func (s *Server) handlePostElementTags(w http.ResponseWriter, r *http.Request) {
	ctx, err := auth.Authenticate(r, s.store.Tokens())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		http.Error(w, fmt.Sprintf("authenticate: %v", err), http.StatusInternalServerError)
		return
	}

	id, err := domain.ParseElementID(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.store.Elements().SelectByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "element not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("get element: %v", err), http.StatusInternalServerError)
		return
	}

	tags, ok := decodeTagPatch(w, r)
	if !ok {
		return
	}
	adminID, _ := auth.AdminUserIDFromContext(ctx)
	for key, value := range tags {
		if value == nil {
			err = s.store.Elements().RemoveTag(ctx, id, key)
		} else {
			err = s.store.Elements().SetTag(ctx, id, key, value)
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("update tags: %v", err), http.StatusInternalServerError)
			return
		}
		log.Printf("[ADMIN] user %d set tag %s on element %s", adminID, key, id)
	}

	element, err := s.store.Elements().SelectByID(ctx, id)
	if err != nil {
		http.Error(w, fmt.Sprintf("get element: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toElementView(element))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	since, limit, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	events, err := s.store.Events().SelectAll(r.Context(), since, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("list events: %v", err), http.StatusInternalServerError)
		return
	}
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toEventView(ev))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	event, err := s.store.Events().SelectByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("get event: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toEventView(event))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	_, limit, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	users, err := s.store.Users().SelectAll(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("list users: %v", err), http.StatusInternalServerError)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	user, err := s.store.Users().SelectByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("get user: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}

func (s *Server) handlePostUserTags(w http.ResponseWriter, r *http.Request) {
	ctx, err := auth.Authenticate(r, s.store.Tokens())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		http.Error(w, fmt.Sprintf("authenticate: %v", err), http.StatusInternalServerError)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if _, err := s.store.Users().SelectByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("get user: %v", err), http.StatusInternalServerError)
		return
	}

	tags, ok := decodeTagPatch(w, r)
	if !ok {
		return
	}
	adminID, _ := auth.AdminUserIDFromContext(ctx)
	for key, value := range tags {
		if value == nil {
			err = s.store.Users().RemoveTag(ctx, id, key)
		} else {
			err = s.store.Users().SetTag(ctx, id, key, value)
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("update tags: %v", err), http.StatusInternalServerError)
			return
		}
		log.Printf("[ADMIN] user %d set tag %s on user %d", adminID, key, id)
	}

	user, err := s.store.Users().SelectByID(ctx, id)
	if err != nil {
		http.Error(w, fmt.Sprintf("get user: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.store.Areas().SelectAll(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list areas: %v", err), http.StatusInternalServerError)
		return
	}
	views := make([]areaView, 0, len(areas))
	for _, a := range areas {
		views = append(views, toAreaView(a))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	ctx, err := auth.Authenticate(r, s.store.Tokens())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		http.Error(w, fmt.Sprintf("authenticate: %v", err), http.StatusInternalServerError)
		return
	}

	tags, ok := decodeTagPatch(w, r)
	if !ok {
		return
	}
	for key, value := range tags {
		if value == nil {
			http.Error(w, fmt.Sprintf("tag %s must not be null", key), http.StatusBadRequest)
			return
		}
	}

	area, err := s.store.Areas().Insert(ctx, tags)
	if err != nil {
		http.Error(w, fmt.Sprintf("create area: %v", err), http.StatusInternalServerError)
		return
	}
	adminID, _ := auth.AdminUserIDFromContext(ctx)
	log.Printf("[ADMIN] user %d created area %d", adminID, area.ID)
	writeJSON(w, http.StatusCreated, toAreaView(area))
}

// selectArea resolves an {id-or-alias} path segment: all-digits means a
// numeric id, anything else a url_alias.
func (s *Server) selectArea(r *http.Request, segment string) (domain.Area, error) {
	if id, err := strconv.ParseInt(segment, 10, 64); err == nil {
		return s.store.Areas().SelectByID(r.Context(), id)
	}
	return s.store.Areas().SelectByAlias(r.Context(), segment)
}

func (s *Server) handleGetArea(w http.ResponseWriter, r *http.Request) {
	area, err := s.selectArea(r, r.PathValue("alias"))
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "area not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("get area: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toAreaView(area))
}

func (s *Server) handlePostAreaTags(w http.ResponseWriter, r *http.Request) {
	ctx, err := auth.Authenticate(r, s.store.Tokens())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		http.Error(w, fmt.Sprintf("authenticate: %v", err), http.StatusInternalServerError)
		return
	}

	area, err := s.selectArea(r, r.PathValue("alias"))
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "area not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("get area: %v", err), http.StatusInternalServerError)
		return
	}

	tags, ok := decodeTagPatch(w, r)
	if !ok {
		return
	}
	adminID, _ := auth.AdminUserIDFromContext(ctx)
	for key, value := range tags {
		if value == nil {
			err = s.store.Areas().RemoveTag(ctx, area.ID, key)
		} else {
			err = s.store.Areas().SetTag(ctx, area.ID, key, value)
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("update tags: %v", err), http.StatusInternalServerError)
			return
		}
		log.Printf("[ADMIN] user %d set tag %s on area %d", adminID, key, area.ID)
	}

	area, err = s.store.Areas().SelectByID(ctx, area.ID)
	if err != nil {
		http.Error(w, fmt.Sprintf("get area: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toAreaView(area))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	_, limit, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reports, err := s.store.Reports().SelectAll(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("list reports: %v", err), http.StatusInternalServerError)
		return
	}
	views := make([]reportView, 0, len(reports))
	for _, rep := range reports {
		views = append(views, toReportView(rep))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	report, err := s.store.Reports().SelectByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("get report: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toReportView(report))
}

// decodeTagPatch reads a {"key": value} body. A null value requests tag
// removal. Reports its own errors; ok is false when the caller should
// stop.
func decodeTagPatch(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	defer r.Body.Close()
	var tags map[string]any
	if err := json.NewDecoder(r.Body).Decode(&tags); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return nil, false
	}
	if len(tags) == 0 {
		http.Error(w, "at least one tag is required", http.StatusBadRequest)
		return nil, false
	}
	for key := range tags {
		if strings.TrimSpace(key) == "" {
			http.Error(w, "tag keys must not be empty", http.StatusBadRequest)
			return nil, false
		}
	}
	return tags, true
}
