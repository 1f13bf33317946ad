package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"creator-scout-go/internal/dataset"
	"creator-scout-go/internal/store"
	"creator-scout-go/internal/types"
)

type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptime_s"`
}

type SubmitResponse struct {
	Message       string      `json:"message"`
	ProcessedRows int         `json:"processedRows,omitempty"`
	Jobs          []types.Job `json:"jobs"`
}

// CampaignRequest is the JSON form of a campaign brief.
type CampaignRequest struct {
	types.Criteria
	ContentType string `json:"contentType"`
	Agents      string `json:"agents"`
}

type JobsResponse struct {
	Message string      `json:"message"`
	Jobs    []types.Job `json:"jobs"`
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

// agentsParam maps the agent query parameter; anything other than creator
// or content runs both agents.
func agentsParam(r *http.Request) types.Agents {
	a, err := types.ParseAgents(r.URL.Query().Get("agent"))
	if err != nil {
		return types.AgentsBoth
	}
	return a
}

func uploadBriefHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := cfg.Logger.WithRequest(r).WithField("handler", "upload-excel")
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUpload)
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "No file uploaded", "BAD_REQUEST")
			return
		}
		defer file.Close()
		log = log.WithField("filename", header.Filename)

		briefs, err := dataset.LoadBrief(file)
		var briefErr *dataset.BriefError
		switch {
		case errors.As(err, &briefErr):
			log.WithField("invalid_rows", len(briefErr.Rows)).Warn("brief rejected")
			WriteValidation(w, "Validation errors in Excel file", briefErr.Rows)
			return
		case errors.Is(err, dataset.ErrEmptyBrief):
			WriteError(w, http.StatusBadRequest, "No data found in the Excel file", "BAD_REQUEST")
			return
		case err != nil:
			log.WithError(err).Warn("brief unreadable")
			WriteError(w, http.StatusBadRequest, "Error processing the Excel file", "BAD_REQUEST")
			return
		}

		agents := agentsParam(r)
		jobs := make([]types.Job, 0, len(briefs))
		for _, c := range briefs {
			job, err := cfg.Jobs.Submit(r.Context(), c, agents)
			if err != nil {
				log.WithError(err).Error("job submission failed")
				WriteError(w, http.StatusInternalServerError, "Error processing the Excel file", "INTERNAL_ERROR")
				return
			}
			jobs = append(jobs, *job)
		}
		log.WithField("jobs", len(jobs)).Info("brief accepted")
		WriteJSON(w, http.StatusOK, SubmitResponse{
			Message:       "Data successfully validated and processed. Please check the job status later.",
			ProcessedRows: len(jobs),
			Jobs:          jobs,
		})
	}
}

func submitCampaignHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		agents, err := types.ParseAgents(req.Agents)
		if err != nil {
			WriteValidation(w, "invalid criteria", []types.FieldError{{Field: "agents", Message: "must be creator, content or both"}})
			return
		}
		ct, err := types.ParseContentType(req.ContentType)
		if err != nil {
			WriteValidation(w, "invalid criteria", []types.FieldError{{Field: "contentType", Message: "must be organic or ad"}})
			return
		}
		req.Criteria.ContentType = ct

		job, err := cfg.Jobs.Submit(r.Context(), req.Criteria, agents)
		var verr *types.ValidationError
		switch {
		case errors.As(err, &verr):
			WriteValidation(w, "invalid criteria", verr.Fields)
			return
		case err != nil:
			cfg.Logger.WithRequest(r).WithError(err).Error("job submission failed")
			WriteError(w, http.StatusInternalServerError, "failed to create job", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusAccepted, SubmitResponse{Message: "job queued", Jobs: []types.Job{*job}})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}
		jobs, err := cfg.Store.ListJobs(r.Context(), limit)
		if err != nil {
			cfg.Logger.WithRequest(r).WithError(err).Error("list jobs failed")
			WriteError(w, http.StatusInternalServerError, "Error fetching job data", "INTERNAL_ERROR")
			return
		}
		if jobs == nil {
			jobs = []types.Job{}
		}
		WriteJSON(w, http.StatusOK, JobsResponse{Message: "Job data retrieved successfully", Jobs: jobs})
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Store.GetJob(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found", "NOT_FOUND")
			return
		}
		if err != nil {
			cfg.Logger.WithRequest(r).WithError(err).Error("get job failed")
			WriteError(w, http.StatusInternalServerError, "Error fetching job data", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, job)
	}
}

func deleteJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := cfg.Store.DeleteJob(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found", "NOT_FOUND")
			return
		}
		if err != nil {
			cfg.Logger.WithRequest(r).WithError(err).Error("delete job failed")
			WriteError(w, http.StatusInternalServerError, "Error deleting data", "INTERNAL_ERROR")
			return
		}
		cfg.Logger.WithJob(id).Info("job purged")
		w.WriteHeader(http.StatusNoContent)
	}
}

func sheetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		sheetType := strings.ToLower(r.URL.Query().Get("sheetType"))
		if sheetType != "content" && sheetType != "creator" {
			WriteError(w, http.StatusBadRequest, "sheetType must be creator or content", "BAD_REQUEST")
			return
		}
		if _, err := cfg.Store.GetJob(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "Job not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, "Error fetching job data", "INTERNAL_ERROR")
			return
		}

		var (
			buf      bytes.Buffer
			filename string
			count    int
			err      error
		)
		if sheetType == "content" {
			var rows []types.ContentRecord
			if rows, err = cfg.Store.ContentRecords(ctx, id); err == nil && len(rows) > 0 {
				count, filename = len(rows), dataset.ContentFileName(id)
				err = dataset.WriteContentSheet(&buf, rows)
			}
		} else {
			var rows []types.CreatorRecord
			if rows, err = cfg.Store.CreatorRecords(ctx, id); err == nil && len(rows) > 0 {
				count, filename = len(rows), dataset.CreatorFileName(id)
				err = dataset.WriteCreatorSheet(&buf, rows)
			}
		}
		if err != nil {
			cfg.Logger.WithRequest(r).WithError(err).Error("sheet export failed")
			WriteError(w, http.StatusInternalServerError, "failed to build sheet", "INTERNAL_ERROR")
			return
		}
		if count == 0 {
			WriteError(w, http.StatusNotFound, "No data found for the given Job ID", "NOT_FOUND")
			return
		}

		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		buf.WriteTo(w)
	}
}
