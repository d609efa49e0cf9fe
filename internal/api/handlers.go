package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/movierank/internal/model"
	"github.com/JakeFAU/movierank/internal/store"
)

type indexPage struct {
	Regions []string
}

type resultsPage struct {
	Query  model.TopQuery
	Points []model.ChartPoint
	Chart  *chartView
}

type listPage struct {
	Movies []model.RankedMovie
}

// index renders the search form. A database that is not loaded yet still
// gets a form with the "All" region only.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	regions, err := s.reports.Regions(r.Context())
	if err != nil {
		s.logger.Warn("Regions unavailable", zap.Error(err))
		regions = nil
	}
	s.render(w, r, http.StatusOK, "index.html", indexPage{Regions: regions})
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	q, err := parseTopQuery(r.PostForm.Get("sort"), r.PostForm.Get("dir"), r.PostForm.Get("region"))
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	points, err := s.reports.TopMovies(r.Context(), q)
	if err != nil {
		status, msg := s.queryFailure(r, err)
		s.renderError(w, r, status, msg)
		return
	}
	if r.PostForm.Get("plot") != "" {
		s.render(w, r, http.StatusOK, "plot.html", resultsPage{Query: q, Points: points, Chart: buildChart(q.SortBy, points)})
		return
	}
	s.render(w, r, http.StatusOK, "results.html", resultsPage{Query: q, Points: points})
}

func (s *Server) movieList(w http.ResponseWriter, r *http.Request) {
	movies, err := s.reports.RankedMovies(r.Context())
	if err != nil {
		status, msg := s.queryFailure(r, err)
		s.renderError(w, r, status, msg)
		return
	}
	s.render(w, r, http.StatusOK, "list.html", listPage{Movies: movies})
}

// apiTop handles GET /api/top?sort=&dir=&region=.
func (s *Server) apiTop(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q, err := parseTopQuery(qs.Get("sort"), qs.Get("dir"), qs.Get("region"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := s.reports.TopMovies(r.Context(), q)
	if err != nil {
		status, msg := s.queryFailure(r, err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": points})
}

func (s *Server) apiMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.reports.RankedMovies(r.Context())
	if err != nil {
		status, msg := s.queryFailure(r, err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movies": movies})
}

func (s *Server) apiRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.reports.Regions(r.Context())
	if err != nil {
		status, msg := s.queryFailure(r, err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": regions})
}

func parseTopQuery(sort, dir, region string) (model.TopQuery, error) {
	column, err := model.ParseSortColumn(sort)
	if err != nil {
		return model.TopQuery{}, err
	}
	direction, err := model.ParseSortDirection(dir)
	if err != nil {
		return model.TopQuery{}, err
	}
	region = strings.TrimSpace(region)
	if region == "" {
		region = model.AllRegions
	}
	return model.TopQuery{
		SortBy:    column,
		Direction: direction,
		Region:    region,
	}, nil
}

// queryFailure maps a report error to a status and a message safe to show.
func (s *Server) queryFailure(r *http.Request, err error) (int, string) {
	if errors.Is(err, store.ErrInvalidQuery) {
		return http.StatusBadRequest, err.Error()
	}
	s.logger.Error("Report query failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err),
	)
	return http.StatusInternalServerError, "failed to load report"
}
