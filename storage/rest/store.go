// Package reststore talks to the hosted PostgREST endpoint of the backend.
package reststore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/remote"
)

const (
	restPath = "/rest/v1/"

	notFoundMsg = "JSON object requested, multiple (or no) rows returned"
)

type Store struct {
	baseURL string
	anonKey string
	client  *rest.Client
	logger  core.Logger
}

var _ remote.Store = (*Store)(nil) // interface compliance check

// New creates a store for the project at `projectURL` (e.g. https://xyz.supabase.co).
// A nil httpClient uses http.DefaultClient.
func New(projectURL, anonKey string, httpClient *http.Client, logger core.Logger) *Store {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Store{
		baseURL: strings.TrimRight(projectURL, "/") + restPath,
		anonKey: anonKey,
		client:  &rest.Client{HTTPClient: httpClient},
		logger:  logger,
	}
}

func NewFromConfig(conf *core.Config, logger core.Logger) *Store {
	return New(conf.SupabaseURL, conf.SupabaseAnonKey, nil, logger)
}

func (s *Store) request(method rest.Method, token string, q remote.Query) rest.Request {
	if token == "" {
		token = s.anonKey
	}
	params := make(map[string]string, len(q.Filters)+2)
	for _, f := range q.Filters {
		params[f.Column] = "eq." + fmt.Sprint(f.Value)
	}
	return rest.Request{
		Method:  method,
		BaseURL: s.baseURL + q.Table,
		Headers: map[string]string{
			"apikey":        s.anonKey,
			"Authorization": "Bearer " + token,
			"Accept":        "application/json",
			"Content-Type":  "application/json",
		},
		QueryParams: params,
	}
}

func (s *Store) Select(ctx context.Context, token string, q remote.Query) ([]remote.Row, error) {
	req := s.request(rest.Get, token, q)
	req.QueryParams["select"] = "*"
	if len(q.Order) > 0 {
		ords := make([]string, 0, len(q.Order))
		for _, ord := range q.Order {
			dir := "desc"
			if ord.Ascending {
				dir = "asc"
			}
			ords = append(ords, ord.Field+"."+dir)
		}
		req.QueryParams["order"] = strings.Join(ords, ",")
	}
	if q.Limit > 0 {
		req.QueryParams["limit"] = strconv.Itoa(q.Limit)
	}
	return s.send(ctx, "select "+q.Table, req)
}

func (s *Store) Insert(ctx context.Context, token, table string, row remote.Row) (remote.Row, error) {
	req, err := s.withBody(s.request(rest.Post, token, remote.From(table)), row)
	if err != nil {
		return nil, err
	}
	rows, err := s.send(ctx, "insert "+table, req)
	if err != nil {
		return nil, err
	}
	return single("insert "+table, rows)
}

func (s *Store) Update(ctx context.Context, token string, q remote.Query, patch remote.Row) (remote.Row, error) {
	req, err := s.withBody(s.request(rest.Patch, token, q), patch)
	if err != nil {
		return nil, err
	}
	rows, err := s.send(ctx, "update "+q.Table, req)
	if err != nil {
		return nil, err
	}
	return single("update "+q.Table, rows)
}

func (s *Store) Delete(ctx context.Context, token string, q remote.Query) error {
	_, err := s.send(ctx, "delete "+q.Table, s.request(rest.Delete, token, q))
	return err
}

func (s *Store) withBody(req rest.Request, row remote.Row) (rest.Request, error) {
	body, err := json.Marshal(row)
	if err != nil {
		return req, errors.Wrap(err, "encoding row")
	}
	req.Body = body
	req.Headers["Prefer"] = "return=representation"
	return req, nil
}

func (s *Store) send(ctx context.Context, op string, req rest.Request) ([]remote.Row, error) {
	res, err := s.client.SendWithContext(ctx, req)
	if err != nil {
		s.logger.Warn(op, err)
		return nil, core.NewRemoteError(op, 0, err.Error(), err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(op, res)
	}
	if strings.TrimSpace(res.Body) == "" {
		return []remote.Row{}, nil
	}
	var rows []remote.Row
	if err := json.Unmarshal([]byte(res.Body), &rows); err != nil {
		return nil, core.NewRemoteError(op, res.StatusCode, "unexpected response from server", err)
	}
	return rows, nil
}

func single(op string, rows []remote.Row) (remote.Row, error) {
	if len(rows) != 1 {
		return nil, core.NewRemoteError(op, http.StatusNotAcceptable, notFoundMsg, core.ErrRecordNotFound)
	}
	return rows[0], nil
}

// apiError is the error body of PostgREST.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func decodeError(op string, res *rest.Response) error {
	var body apiError
	if err := json.Unmarshal([]byte(res.Body), &body); err != nil || body.Message == "" {
		body.Message = http.StatusText(res.StatusCode)
	}
	return &core.RemoteError{
		Op:      op,
		Status:  res.StatusCode,
		Code:    body.Code,
		Message: body.Message,
	}
}
