package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"

	"github.com/earshot-audio/earshot/api"
	"github.com/earshot-audio/earshot/events"
	"github.com/earshot-audio/earshot/models"
	"github.com/earshot-audio/earshot/session"
	"github.com/earshot-audio/earshot/shared"
)

func renderJSONMessage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	res := map[string]string{"message": message}
	json.NewEncoder(w).Encode(res)
}

func renderJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RegisterRoutes wires the presentation surface: read endpoints for
// session state, intent endpoints that drive playback, and the SSE
// stream the UI rehydrates from.
func RegisterRoutes(mux *http.ServeMux, sess *session.Session) http.Handler {

	events.Server.CreateStream(shared.StreamSession)
	events.Server.CreateStream(shared.StreamPlayback)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, "This is Earshot, a feed playback daemon for short audio clips.")
	})

	mux.HandleFunc("/api/v1/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sess.Snapshot())
	})

	mux.HandleFunc("/api/v1/playing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		clip, ok := sess.NowPlaying()
		if !ok {
			json.NewEncoder(w).Encode(map[string]string{})
			return
		}
		json.NewEncoder(w).Encode(clip)
	})

	mux.HandleFunc("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		history := sess.History()
		if len(history) == 0 {
			json.NewEncoder(w).Encode([]string{})
			return
		}
		json.NewEncoder(w).Encode(history)
	})

	mux.HandleFunc("/api/v1/queue", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		upNext := sess.UpNext()
		if len(upNext) == 0 {
			json.NewEncoder(w).Encode([]string{})
			return
		}
		json.NewEncoder(w).Encode(upNext)
	})

	mux.HandleFunc("/api/v1/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
			return
		}
		var payload struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			renderJSONError(w, http.StatusBadRequest, "failed to parse request body")
			return
		}
		if err := sess.Login(payload.Username, payload.Password); err != nil {
			// Deliberately generic; the backend's reason stays in logs
			renderJSONError(w, http.StatusUnauthorized, "login failed")
			return
		}
		renderJSONMessage(w, "logged in")
	})

	mux.HandleFunc("/api/v1/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
			return
		}
		var payload struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			renderJSONError(w, http.StatusBadRequest, "failed to parse request body")
			return
		}
		if err := sess.Register(payload.Username, payload.Email, payload.Password); err != nil {
			renderJSONError(w, http.StatusUnauthorized, "registration failed")
			return
		}
		renderJSONMessage(w, "registered")
	})

	mux.HandleFunc("/api/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
			return
		}
		sess.Logout()
		renderJSONMessage(w, "logged out")
	})

	mux.HandleFunc("/api/v1/intent/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
			return
		}
		intent := strings.TrimPrefix(r.URL.Path, "/api/v1/intent/")
		switch intent {
		case "play":
			sess.OnPlayRequested()
		case "pause":
			sess.OnPauseRequested()
		case "playpause":
			sess.PlayPause()
		case "next":
			sess.OnNextRequested()
		case "previous":
			sess.OnPreviousRequested()
		case "seek":
			seconds, err := strconv.ParseFloat(r.URL.Query().Get("seconds"), 64)
			if err != nil {
				renderJSONError(w, http.StatusBadRequest, "seconds must be a number")
				return
			}
			sess.OnSeekRequested(seconds)
		case "rate":
			rate, err := strconv.ParseFloat(r.URL.Query().Get("rate"), 64)
			if err != nil || rate < 0 {
				renderJSONError(w, http.StatusBadRequest, "rate must be a non-negative number")
				return
			}
			sess.SetRate(rate)
		default:
			renderJSONError(w, http.StatusNotFound, "unknown intent")
			return
		}
		renderJSONMessage(w, "ok")
	})

	mux.HandleFunc("/api/v1/categories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if err := sess.RefreshCategories(); err != nil {
				renderJSONError(w, http.StatusBadGateway, "could not refresh categories")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(sess.Categories())
		case http.MethodPost:
			var payload struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				renderJSONError(w, http.StatusBadRequest, "failed to parse request body")
				return
			}
			sess.AddCategory(models.Category{ID: payload.ID, Name: payload.Name})
			renderJSONMessage(w, "ok")
		default:
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
		}
	})

	mux.HandleFunc("/api/v1/category", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
			return
		}
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			renderJSONError(w, http.StatusBadRequest, "id must be an integer")
			return
		}
		sess.SetActiveCategory(id)
		renderJSONMessage(w, "ok")
	})

	mux.HandleFunc("/api/v1/follow", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(sess.Follows())
		case http.MethodPost:
			var payload struct {
				FeedID     int64 `json:"feed_id"`
				Interested bool  `json:"is_interested"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				renderJSONError(w, http.StatusBadRequest, "failed to parse request body")
				return
			}
			if err := sess.FollowShow(payload.FeedID, payload.Interested); err != nil {
				renderJSONError(w, http.StatusBadGateway, "follow failed")
				return
			}
			renderJSONMessage(w, "ok")
		default:
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
		}
	})

	mux.HandleFunc("/api/v1/follow/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
			return
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/v1/follow/"), 10, 64)
		if err != nil {
			renderJSONError(w, http.StatusBadRequest, "follow id must be an integer")
			return
		}
		if err := sess.UnfollowShow(id); err != nil {
			renderJSONError(w, http.StatusBadGateway, "unfollow failed")
			return
		}
		renderJSONMessage(w, "ok")
	})

	mux.HandleFunc("/api/v1/artwork", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" {
			renderJSONError(w, http.StatusBadRequest, "key must not be empty")
			return
		}
		art, err := sess.Artwork(models.Show{ArtworkKey: key})
		if err != nil {
			renderJSONError(w, http.StatusBadGateway, "could not fetch artwork")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(art)
	})

	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("q")
		if search == "" {
			renderJSONError(w, http.StatusBadRequest, "q must not be empty")
			return
		}
		shows, err := sess.SearchShows(search)
		if err != nil {
			renderJSONError(w, http.StatusBadGateway, "search failed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(shows)
	})

	mux.HandleFunc("/api/v1/scores", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if err := sess.RefreshCategoryScores(); err != nil {
				renderJSONError(w, http.StatusBadGateway, "could not refresh scores")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(sess.CategoryScores())
		case http.MethodPost:
			var payload struct {
				CategoryID int64   `json:"category_id"`
				Score      float64 `json:"score"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				renderJSONError(w, http.StatusBadRequest, "failed to parse request body")
				return
			}
			if err := sess.UpdateCategoryScore(payload.CategoryID, payload.Score); err != nil {
				renderJSONError(w, http.StatusBadGateway, "could not update score")
				return
			}
			renderJSONMessage(w, "ok")
		default:
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
		}
	})

	mux.HandleFunc("/api/v1/scores/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
			return
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/v1/scores/"), 10, 64)
		if err != nil {
			renderJSONError(w, http.StatusBadRequest, "score id must be an integer")
			return
		}
		if err := sess.DeleteCategoryScore(id); err != nil {
			renderJSONError(w, http.StatusBadGateway, "could not delete score")
			return
		}
		renderJSONMessage(w, "ok")
	})

	mux.HandleFunc("/api/v1/onboarding/complete", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONError(w, http.StatusMethodNotAllowed, "that method is invalid for this endpoint")
			return
		}
		if err := sess.CompleteOnboarding(); err != nil {
			var capacity *api.CapacityError
			if errors.As(err, &capacity) {
				renderJSONError(w, http.StatusUnprocessableEntity, capacity.Error())
				return
			}
			renderJSONError(w, http.StatusInternalServerError, "could not complete onboarding")
			return
		}
		renderJSONMessage(w, "ok")
	})

	mux.HandleFunc("/events", events.Server.ServeHTTP)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:1313", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Origin, Content-Type, Accept"},
	})

	handler := c.Handler(mux)

	return handler
}
