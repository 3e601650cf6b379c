// ABOUTME: REST routes mapping HTTP requests onto the resource handlers
// ABOUTME: Adapts tool-style handlers to JSON, plus multipart upload and file download
package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/harperreed/crmlite/handlers"
	"github.com/harperreed/crmlite/policy"
	"github.com/harperreed/crmlite/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const maxUploadMemory = 32 << 20

// serve adapts a tool handler to HTTP. The caller must be signed in before the
// request is bound, so a malformed body from an anonymous caller is still a 401.
func serve[In, Out any](s *Server, status int, h func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error), bind func(*http.Request, *In) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := policy.Require(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}

		var in In
		if bind != nil {
			if err := bind(r, &in); err != nil {
				s.writeError(w, r, err)
				return
			}
		}

		_, out, err := h(r.Context(), nil, in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, status, out)
	}
}

func (s *Server) routes(api chi.Router) {
	api.Get("/me", serve(s, http.StatusOK, s.users.WhoAmI, nil))

	api.Route("/deals", func(r chi.Router) {
		r.Get("/", serve(s, http.StatusOK, s.deals.ListDeals, func(r *http.Request, in *handlers.ListDealsInput) error {
			in.Stage = r.URL.Query().Get("stage")
			return nil
		}))
		r.Post("/", serve(s, http.StatusCreated, s.deals.CreateDeal, func(r *http.Request, in *handlers.CreateDealInput) error {
			return readJSON(r, in)
		}))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", serve(s, http.StatusOK, s.deals.GetDeal, func(r *http.Request, in *handlers.GetDealInput) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
			r.Put("/", serve(s, http.StatusOK, s.deals.UpdateDeal, func(r *http.Request, in *handlers.UpdateDealInput) error {
				if err := readJSON(r, in); err != nil {
					return err
				}
				in.ID = chi.URLParam(r, "id")
				return nil
			}))
			r.Delete("/", serve(s, http.StatusOK, s.deals.DeleteDeal, func(r *http.Request, in *handlers.DeleteDealInput) error {
				in.ID = chi.URLParam(r, "id")
				return nil
			}))

			r.Get("/activities", serve(s, http.StatusOK, s.activities.ListActivities, func(r *http.Request, in *handlers.ListActivitiesInput) error {
				in.DealID = chi.URLParam(r, "id")
				return nil
			}))
			r.Post("/activities", serve(s, http.StatusCreated, s.activities.CreateActivity, func(r *http.Request, in *handlers.CreateActivityInput) error {
				if err := readJSON(r, in); err != nil {
					return err
				}
				in.DealID = chi.URLParam(r, "id")
				return nil
			}))

			r.Get("/contacts", serve(s, http.StatusOK, s.contacts.ListContacts, func(r *http.Request, in *handlers.ListContactsInput) error {
				in.DealID = chi.URLParam(r, "id")
				return nil
			}))
			r.Post("/contacts", serve(s, http.StatusCreated, s.contacts.CreateContact, func(r *http.Request, in *handlers.CreateContactInput) error {
				if err := readJSON(r, in); err != nil {
					return err
				}
				in.DealID = chi.URLParam(r, "id")
				return nil
			}))

			r.Get("/competitors", serve(s, http.StatusOK, s.competitors.ListCompetitors, func(r *http.Request, in *handlers.ListCompetitorsInput) error {
				in.DealID = chi.URLParam(r, "id")
				return nil
			}))
			r.Post("/competitors", serve(s, http.StatusCreated, s.competitors.CreateCompetitor, func(r *http.Request, in *handlers.CreateCompetitorInput) error {
				if err := readJSON(r, in); err != nil {
					return err
				}
				in.DealID = chi.URLParam(r, "id")
				return nil
			}))

			r.Get("/files", serve(s, http.StatusOK, s.files.ListFiles, func(r *http.Request, in *handlers.ListFilesInput) error {
				in.DealID = chi.URLParam(r, "id")
				return nil
			}))

			r.Get("/graph.dot", s.handleDealGraph)
		})
	})

	api.Delete("/activities/{id}", serve(s, http.StatusOK, s.activities.DeleteActivity, func(r *http.Request, in *handlers.DeleteActivityInput) error {
		in.ID = chi.URLParam(r, "id")
		return nil
	}))

	api.Put("/contacts/{id}", serve(s, http.StatusOK, s.contacts.UpdateContact, func(r *http.Request, in *handlers.UpdateContactInput) error {
		if err := readJSON(r, in); err != nil {
			return err
		}
		in.ID = chi.URLParam(r, "id")
		return nil
	}))
	api.Delete("/contacts/{id}", serve(s, http.StatusOK, s.contacts.DeleteContact, func(r *http.Request, in *handlers.DeleteContactInput) error {
		in.ID = chi.URLParam(r, "id")
		return nil
	}))

	api.Put("/competitors/{id}", serve(s, http.StatusOK, s.competitors.UpdateCompetitor, func(r *http.Request, in *handlers.UpdateCompetitorInput) error {
		if err := readJSON(r, in); err != nil {
			return err
		}
		in.ID = chi.URLParam(r, "id")
		return nil
	}))
	api.Delete("/competitors/{id}", serve(s, http.StatusOK, s.competitors.DeleteCompetitor, func(r *http.Request, in *handlers.DeleteCompetitorInput) error {
		in.ID = chi.URLParam(r, "id")
		return nil
	}))

	api.Post("/files/upload", s.handleUpload)
	api.Get("/files/{id}", s.handleDownload)

	api.Get("/dashboard", serve(s, http.StatusOK, s.dashboard.GetDashboard, nil))
	api.Get("/dashboard/pipeline.dot", s.handlePipelineGraph)
}

// handleUpload accepts multipart form data with file, deal_id and category.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, err := policy.Require(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, r, policy.Invalid("File and deal_id are required"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, policy.Invalid("File and deal_id are required"))
		return
	}
	defer file.Close()

	if header.Size == 0 {
		s.writeError(w, r, policy.Invalid("File is empty"))
		return
	}

	out, err := s.files.Upload(r.Context(), r.FormValue("deal_id"), header.Filename, r.FormValue("category"), file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// handleDownload streams the blob as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	file, blob, err := s.files.OpenFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", storage.ContentTypeFor(file.Filename))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	http.ServeContent(w, r, file.Filename, file.UploadedAt, blob)
}

func (s *Server) handlePipelineGraph(w http.ResponseWriter, r *http.Request) {
	dot, err := s.graphs.PipelineGraph(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDOT(w, dot)
}

func (s *Server) handleDealGraph(w http.ResponseWriter, r *http.Request) {
	dot, err := s.graphs.DealGraph(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDOT(w, dot)
}

func writeDOT(w http.ResponseWriter, dot string) {
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dot))
}
