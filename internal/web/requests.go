package web

// requests.go turns multipart uploads into tables and column settings.
//
// Every file field of the form is parsed concurrently. The column settings
// arrive as a JSON "config" field shaped like a matching profile; when it
// is absent the server's configured profile is used.

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/icumatch/internal/config"
	"github.com/JonMunkholm/icumatch/internal/core"
	"github.com/JonMunkholm/icumatch/internal/sheet"
)

// Form fields.
const (
	fieldEpisodes = "episodes"
	fieldCultures = "cultures"
	fieldRegistry = "registry"
	fieldInfo     = "info"
	fieldCensus   = "census"
	fieldCases    = "cases"
	fieldConfig   = "config"
	fieldVariant  = "variant"

	// auxPrefix names extra attribute tables: "aux.wards" is source "wards".
	auxPrefix = "aux."
)

const (
	maxFilesPerRequest = 24
	maxParallelParse   = 4
	multipartMemory    = 32 << 20
)

// uploads are the parsed files of one request, by form field, in upload
// order within a field.
type uploads map[string][]*core.Table

func (u uploads) first(field string) *core.Table {
	if ts := u[field]; len(ts) > 0 {
		return ts[0]
	}
	return nil
}

// inputs maps the uploaded files to pipeline tables.
func (u uploads) inputs() core.Inputs {
	in := core.Inputs{
		Episodes: u.first(fieldEpisodes),
		Cultures: u.first(fieldCultures),
		Registry: u.first(fieldRegistry),
		Aux:      make(map[string]*core.Table),
	}
	for field := range u {
		switch {
		case field == fieldInfo:
			in.Aux[fieldInfo] = u.first(field)
		case strings.HasPrefix(field, auxPrefix):
			in.Aux[strings.TrimPrefix(field, auxPrefix)] = u.first(field)
		}
	}
	return in
}

// parseUploads reads every file of a multipart request.
func (s *Server) parseUploads(w http.ResponseWriter, r *http.Request) (uploads, error) {
	maxFile := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*4)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("request body: %w", sheet.ErrTooLarge)
		}
		return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	type job struct {
		field string
		index int
		fh    *multipart.FileHeader
	}
	var jobs []job
	for field, headers := range r.MultipartForm.File {
		for i, fh := range headers {
			jobs = append(jobs, job{field, i, fh})
		}
	}
	if len(jobs) > maxFilesPerRequest {
		return nil, fmt.Errorf("%w: at most %d files per request", errInvalidRequest, maxFilesPerRequest)
	}

	tables := make([]*core.Table, len(jobs))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(maxParallelParse)
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if j.fh.Size > maxFile {
				return fmt.Errorf("%s: %w: exceeds %dMB limit", j.fh.Filename, sheet.ErrTooLarge, maxFile>>20)
			}
			f, err := j.fh.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", j.fh.Filename, err)
			}
			defer f.Close()

			t, err := sheet.Read(j.fh.Filename, f)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(uploads)
	for i, j := range jobs {
		if out[j.field] == nil {
			out[j.field] = make([]*core.Table, len(r.MultipartForm.File[j.field]))
		}
		out[j.field][j.index] = tables[i]
	}
	return out, nil
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct returns an errInvalidRequest naming every bad field.
func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		field := fe.Namespace()
		if dot := strings.Index(field, "."); dot >= 0 {
			field = field[dot+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs[i] = field + " is required"
		case "oneof":
			msgs[i] = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		default:
			msgs[i] = fmt.Sprintf("%s failed %s", field, fe.Tag())
		}
	}
	return fmt.Errorf("%w: %s", errInvalidRequest, strings.Join(msgs, "; "))
}

// decodeJSON decodes and validates a JSON form field into v. It reports
// whether the field was present.
func (s *Server) decodeJSON(r *http.Request, field string, v any) (bool, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return false, nil
	}
	if err := render.DecodeJSON(strings.NewReader(raw), v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", errInvalidRequest, field, err)
	}
	return true, s.validateStruct(v)
}

// matchSettings resolves the profile of a run: the request's, or the
// server's when the request has none. Server defaults fill the blanks.
func (s *Server) matchSettings(r *http.Request, p *config.Profile) (core.MatchConfig, core.Variant, error) {
	if p == nil {
		if s.profile == nil {
			return core.MatchConfig{}, 0, fmt.Errorf("%w: config is required when no matching profile is configured", errInvalidRequest)
		}
		cp := *s.profile
		p = &cp
	}

	if p.WardPattern == "" {
		p.WardPattern = s.cfg.Matching.WardPattern
	}
	if p.Strategy == "" {
		p.Strategy = s.cfg.Matching.Strategy
	}
	if v := r.FormValue(fieldVariant); v != "" {
		p.Variant = v
	}
	if p.Variant == "" {
		p.Variant = s.cfg.Matching.Variant
	}

	cfg, err := p.MatchConfig()
	if err != nil {
		return core.MatchConfig{}, 0, err
	}
	variant, err := p.ExportVariant()
	if err != nil {
		return core.MatchConfig{}, 0, err
	}
	return cfg, variant, nil
}

// requestProfile decodes the optional "config" field.
func (s *Server) requestProfile(r *http.Request) (*config.Profile, error) {
	var p config.Profile
	ok, err := s.decodeJSON(r, fieldConfig, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// lookupRequest is the "config" field of a case lookup.
type lookupRequest struct {
	Match *config.Profile `json:"match"`
	Cases caseColumns     `json:"cases"`
}

type caseColumns struct {
	CaseNo    string `json:"case_no" validate:"required"`
	Birth     string `json:"birth" validate:"required"`
	Sex       string `json:"sex" validate:"required"`
	ICUAdmit  string `json:"icu_admit" validate:"required"`
	Infection string `json:"infection" validate:"required"`
}

func (c caseColumns) roles() core.CaseRoles {
	return core.CaseRoles{
		CaseNo:    c.CaseNo,
		Birth:     c.Birth,
		Sex:       c.Sex,
		ICUAdmit:  c.ICUAdmit,
		Infection: c.Infection,
	}
}

// censusRequest holds the census form values.
type censusRequest struct {
	IDColumn string `json:"id_column" validate:"omitempty,max=128"`
	Marker   string `json:"marker" validate:"omitempty,max=16"`
}
