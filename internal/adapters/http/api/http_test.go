package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/focusengine/internal/adapters/archive"
	"github.com/okian/focusengine/internal/adapters/http/api"
	service "github.com/okian/focusengine/internal/app"
	"github.com/okian/focusengine/internal/domain/ingest"
	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/types"
	"github.com/okian/focusengine/internal/domain/weights"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	ingestData  []byte
	ingestForce bool
	ingestErr   error

	window, players int
	computeErr      error
	current         *model.ComponentWeightSet

	focusDetail bool
	focusErr    error
	teamErr     error
	statsErr    error
}

func (m *mockDeps) Ingest(_ context.Context, data []byte, force bool) (ingest.Result, error) {
	m.ingestData, m.ingestForce = data, force
	if m.ingestErr != nil {
		return ingest.Result{}, m.ingestErr
	}
	return ingest.Result{Success: true, SourceVersion: "abcdef012345", FilesProcessed: []string{}, Errors: []string{}}, nil
}

func (m *mockDeps) ComputeWeights(_ context.Context, windowSize, minPlayers int) (model.ComponentWeightSet, error) {
	m.window, m.players = windowSize, minPlayers
	if m.computeErr != nil {
		return model.ComponentWeightSet{}, m.computeErr
	}
	return model.ComponentWeightSet{ID: "w1", WOtt: 0.1, WApp: 0.4, WArg: 0.2, WPutt: 0.3, IsActive: true}, nil
}

func (m *mockDeps) CurrentWeights(context.Context) (model.ComponentWeightSet, error) {
	if m.current == nil {
		return model.ComponentWeightSet{}, weights.ErrNoActiveWeights
	}
	return *m.current, nil
}

func (m *mockDeps) PlayerFocus(_ context.Context, playerID string, detail bool) (types.PlayerFocus, error) {
	m.focusDetail = detail
	if m.focusErr != nil {
		return types.PlayerFocus{}, m.focusErr
	}
	return types.PlayerFocus{PlayerID: playerID, FocusComponent: types.APP, Confidence: types.ConfidenceMed}, nil
}

func (m *mockDeps) TeamFocus(_ context.Context, coachID string) (types.TeamFocus, error) {
	if m.teamErr != nil {
		return types.TeamFocus{}, m.teamErr
	}
	return types.TeamFocus{CoachID: coachID, Heatmap: types.EmptyHeatmap(), TopReasonCodes: []string{}, AtRiskPlayers: []types.AtRiskPlayer{}}, nil
}

func (m *mockDeps) Stats(context.Context) (types.IngestionStats, error) {
	if m.statsErr != nil {
		return types.IngestionStats{}, m.statsErr
	}
	season := 2024
	return types.IngestionStats{PlayerSeasons: 12, LatestSeason: &season}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func serve(deps api.Dependencies, req *http.Request, opts ...api.Option) (*httptest.ResponseRecorder, envelope) {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDeps{}

		Convey("The health endpoint exposes Prometheus metrics", func() {
			w, _ := serve(deps, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "# HELP")
		})

		Convey("Stats are wrapped in a success envelope", func() {
			w, env := serve(deps, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(env.Success, ShouldBeTrue)
			var stats types.IngestionStats
			So(json.Unmarshal(env.Data, &stats), ShouldBeNil)
			So(stats.PlayerSeasons, ShouldEqual, 12)
			So(*stats.LatestSeason, ShouldEqual, 2024)
		})

		Convey("A store failure on stats is a server error", func() {
			deps.statsErr = fmt.Errorf("db down")
			w, env := serve(deps, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(env.Success, ShouldBeFalse)
			So(env.Error.Code, ShouldEqual, "internal_error")
		})

		Convey("The wrong method is rejected by the router", func() {
			w, _ := serve(deps, httptest.NewRequest(http.MethodPost, "/weights", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestIngestHandler(t *testing.T) {
	Convey("Given the ingestion endpoint", t, func() {
		deps := &mockDeps{}

		Convey("When posting raw archive bytes with force", func() {
			req := httptest.NewRequest(http.MethodPost, "/internal/ingest?force=true", bytes.NewReader([]byte("PK-bytes")))
			w, env := serve(deps, req)

			Convey("Then the body and flag reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(env.Success, ShouldBeTrue)
				So(string(deps.ingestData), ShouldEqual, "PK-bytes")
				So(deps.ingestForce, ShouldBeTrue)
			})
		})

		Convey("When posting a multipart upload", func() {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			part, err := mw.CreateFormFile("file", "datagolf.zip")
			So(err, ShouldBeNil)
			_, _ = part.Write([]byte("zip-content"))
			So(mw.Close(), ShouldBeNil)

			req := httptest.NewRequest(http.MethodPost, "/internal/ingest", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			w, _ := serve(deps, req)

			Convey("Then the file part is ingested", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(string(deps.ingestData), ShouldEqual, "zip-content")
				So(deps.ingestForce, ShouldBeFalse)
			})
		})

		Convey("When the body is empty", func() {
			w, env := serve(deps, httptest.NewRequest(http.MethodPost, "/internal/ingest", http.NoBody))

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(env.Error.Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When force is not a boolean", func() {
			w, _ := serve(deps, httptest.NewRequest(http.MethodPost, "/internal/ingest?force=maybe", strings.NewReader("x")))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body exceeds the upload limit", func() {
			req := httptest.NewRequest(http.MethodPost, "/internal/ingest", strings.NewReader(strings.Repeat("x", 64)))
			w, env := serve(deps, req, api.WithMaxUploadBytes(16))

			Convey("Then it is rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(env.Error.Code, ShouldEqual, "too_large")
			})
		})

		Convey("When the same archive is still being ingested", func() {
			deps.ingestErr = fmt.Errorf("%w: abc123", service.ErrIngestInProgress)
			w, env := serve(deps, httptest.NewRequest(http.MethodPost, "/internal/ingest", strings.NewReader("PK")))

			Convey("Then it is a conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(env.Error.Code, ShouldEqual, "ingest_in_progress")
			})
		})

		Convey("When the archive cannot be decoded", func() {
			deps.ingestErr = fmt.Errorf("decode archive: %w", archive.ErrInvalidArchive)
			w, _ := serve(deps, httptest.NewRequest(http.MethodPost, "/internal/ingest", strings.NewReader("junk")))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestWeightsHandler(t *testing.T) {
	Convey("Given the weights endpoints", t, func() {
		deps := &mockDeps{}

		Convey("When computing with a valid body", func() {
			req := httptest.NewRequest(http.MethodPost, "/internal/compute-weights", strings.NewReader(`{"windowSize":4,"minPlayers":50}`))
			w, env := serve(deps, req)

			Convey("Then the arguments pass through and the set is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.window, ShouldEqual, 4)
				So(deps.players, ShouldEqual, 50)
				var set model.ComponentWeightSet
				So(json.Unmarshal(env.Data, &set), ShouldBeNil)
				So(set.WApp, ShouldEqual, 0.4)
			})
		})

		Convey("When computing with no body", func() {
			w, _ := serve(deps, httptest.NewRequest(http.MethodPost, "/internal/compute-weights", http.NoBody))

			Convey("Then service defaults apply", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.window, ShouldEqual, 0)
				So(deps.players, ShouldEqual, 0)
			})
		})

		Convey("When the window is out of range", func() {
			for _, body := range []string{`{"windowSize":1}`, `{"windowSize":11}`, `{"minPlayers":9}`, `{"windowSize":"three"}`} {
				w, env := serve(deps, httptest.NewRequest(http.MethodPost, "/internal/compute-weights", strings.NewReader(body)))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(env.Success, ShouldBeFalse)
			}
		})

		Convey("When there is not enough data", func() {
			deps.computeErr = fmt.Errorf("%w: 3 player-seasons", weights.ErrInsufficientData)
			w, env := serve(deps, httptest.NewRequest(http.MethodPost, "/internal/compute-weights", http.NoBody))

			Convey("Then the request is unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(env.Error.Code, ShouldEqual, "insufficient_data")
			})
		})

		Convey("When no weights are active", func() {
			w, env := serve(deps, httptest.NewRequest(http.MethodGet, "/weights", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(env.Error.Code, ShouldEqual, "no_active_weights")
		})

		Convey("When weights are active", func() {
			deps.current = &model.ComponentWeightSet{ID: "w9", WindowStartSeason: 2022, WindowEndSeason: 2024, ComputedAt: time.Unix(0, 0).UTC()}
			w, env := serve(deps, httptest.NewRequest(http.MethodGet, "/weights", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(string(env.Data), ShouldContainSubstring, `"w9"`)
		})
	})
}

func TestFocusHandler(t *testing.T) {
	Convey("Given the focus endpoints", t, func() {
		deps := &mockDeps{}

		Convey("When asking for a player's focus with approach detail", func() {
			w, env := serve(deps, httptest.NewRequest(http.MethodGet, "/players/p-1/focus?includeApproachDetail=true", http.NoBody))

			Convey("Then the path value and flag reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.focusDetail, ShouldBeTrue)
				var focus types.PlayerFocus
				So(json.Unmarshal(env.Data, &focus), ShouldBeNil)
				So(focus.PlayerID, ShouldEqual, "p-1")
				So(focus.FocusComponent, ShouldEqual, types.APP)
			})
		})

		Convey("When the player does not exist", func() {
			deps.focusErr = fmt.Errorf("%w: p-2", service.ErrPlayerNotFound)
			w, env := serve(deps, httptest.NewRequest(http.MethodGet, "/players/p-2/focus", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(env.Error.Code, ShouldEqual, "player_not_found")
		})

		Convey("When calibration data is missing", func() {
			deps.focusErr = weights.ErrInsufficientData
			w, _ := serve(deps, httptest.NewRequest(http.MethodGet, "/players/p-3/focus", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When asking for a coach's team", func() {
			w, env := serve(deps, httptest.NewRequest(http.MethodGet, "/coaches/c-1/focus", http.NoBody))

			Convey("Then the team view is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var team types.TeamFocus
				So(json.Unmarshal(env.Data, &team), ShouldBeNil)
				So(team.CoachID, ShouldEqual, "c-1")
				So(team.Heatmap, ShouldResemble, types.EmptyHeatmap())
			})
		})

		Convey("When the team lookup fails", func() {
			deps.teamErr = fmt.Errorf("list players: boom")
			w, _ := serve(deps, httptest.NewRequest(http.MethodGet, "/coaches/c-1/focus", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}
