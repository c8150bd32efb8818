package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gotomicro/ego/core/elog"
	"golang.org/x/sync/errgroup"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
)

const (
	defaultBaseURL         = "https://firestore.googleapis.com/v1"
	defaultDatabase        = "(default)"
	defaultBulkConcurrency = 5
)

// Config Firestore REST 客户端配置
type Config struct {
	ProjectID string
	// Database 默认 (default)
	Database string
	// APIKey 追加到每个请求的 key 参数上，留空则不带
	APIKey string
	// BaseURL 覆盖接口地址，留空用官方地址
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// BulkConcurrency 批量读写的并发上限
	BulkConcurrency int
}

func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("%w: ProjectID 不能为空", errs.ErrInvalidParameter)
	}
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.BulkConcurrency <= 0 {
		c.BulkConcurrency = defaultBulkConcurrency
	}
	return nil
}

// Document 一条文档
type Document struct {
	// ID 文档在集合内的短 ID
	ID string
	// Name 完整资源名
	Name       string
	Data       map[string]any
	CreateTime string
	UpdateTime string
}

// BulkDocument 批量写入的一项，ID 留空时由服务端生成
type BulkDocument struct {
	ID   string
	Data map[string]any
}

// QueryOptions 查询选项
type QueryOptions struct {
	// OrderBy 排序字段，留空不排序
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Page 游标分页的一页结果
type Page struct {
	Documents []Document
	// NextCursor 传给下一页 StartAfter，空切片表示没有下一页
	NextCursor []any
}

// DeleteAllResult 条件清空的统计
type DeleteAllResult struct {
	// Matched 命中过滤条件的文档数
	Matched int
	// Deleted 实际删除数，dryRun 时恒为 0
	Deleted int
	Results []domain.DispatchResult
}

// Client Firestore REST 客户端。
// 不依赖官方 SDK，直接走 HTTP 接口，方便在任意环境下凭 API key 访问。
type Client struct {
	httpClient *http.Client
	cfg        Config
	// parent projects/{p}/databases/{db}/documents
	parent string
	logger *elog.Component
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
		cfg:    cfg,
		parent: fmt.Sprintf("projects/%s/databases/%s/documents", cfg.ProjectID, cfg.Database),
		logger: elog.DefaultLogger,
	}, nil
}

// AddDocument 写入一条文档，documentID 留空时由服务端生成 ID
func (c *Client) AddDocument(ctx context.Context, collection string, data map[string]any, documentID string) (*Document, error) {
	q := url.Values{}
	if documentID != "" {
		q.Set("documentId", documentID)
	}
	body := map[string]any{"fields": EncodeFields(data)}
	var resp documentResponse
	err := c.do(ctx, http.MethodPost, c.collectionPath(collection), q, body, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toDocument(), nil
}

// UpdateDocument 整体覆盖一条文档，不存在时创建
func (c *Client) UpdateDocument(ctx context.Context, collection, documentID string, data map[string]any) (*Document, error) {
	body := map[string]any{"fields": EncodeFields(data)}
	var resp documentResponse
	err := c.do(ctx, http.MethodPatch, c.documentPath(collection, documentID), nil, body, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toDocument(), nil
}

// GetDocument 读取一条文档，不存在时返回 (nil, nil)
func (c *Client) GetDocument(ctx context.Context, collection, documentID string) (*Document, error) {
	var resp documentResponse
	err := c.do(ctx, http.MethodGet, c.documentPath(collection, documentID), nil, nil, &resp)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return resp.toDocument(), nil
}

// DeleteDocument 删除一条文档。Firestore 删除不存在的文档也返回成功
func (c *Client) DeleteDocument(ctx context.Context, collection, documentID string) error {
	return c.do(ctx, http.MethodDelete, c.documentPath(collection, documentID), nil, nil, nil)
}

// AddMultipleDocuments 并发批量写入，入参和结果一一对应，单条失败不影响其它条
func (c *Client) AddMultipleDocuments(ctx context.Context, collection string, docs []BulkDocument) []domain.DispatchResult {
	results := make([]domain.DispatchResult, len(docs))
	var eg errgroup.Group
	eg.SetLimit(c.cfg.BulkConcurrency)
	for i := range docs {
		eg.Go(func() error {
			doc := docs[i]
			created, err := c.AddDocument(ctx, collection, doc.Data, doc.ID)
			if err != nil {
				results[i] = domain.FailedResult(doc.ID, err)
				return nil
			}
			results[i] = domain.SucceededResult(created.ID, created.Name)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// DeleteMultipleDocuments 并发批量删除，入参和结果一一对应
func (c *Client) DeleteMultipleDocuments(ctx context.Context, collection string, documentIDs []string) []domain.DispatchResult {
	results := make([]domain.DispatchResult, len(documentIDs))
	var eg errgroup.Group
	eg.SetLimit(c.cfg.BulkConcurrency)
	for i := range documentIDs {
		eg.Go(func() error {
			id := documentIDs[i]
			if err := c.DeleteDocument(ctx, collection, id); err != nil {
				results[i] = domain.FailedResult(id, err)
				return nil
			}
			results[i] = domain.SucceededResult(id, "")
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// SearchDocuments 按等值条件查询。filters 的每个键值对都是一个 EQUAL 条件，AND 连接
func (c *Client) SearchDocuments(ctx context.Context, collection string, filters map[string]any, opts QueryOptions) ([]Document, error) {
	query := c.buildQuery(collection, filters, opts, nil)
	return c.runQuery(ctx, query)
}

// SearchDocumentsPaginated 游标分页查询。startAfter 传上一页的 NextCursor
func (c *Client) SearchDocumentsPaginated(ctx context.Context, collection string, filters map[string]any, opts QueryOptions, startAfter []any) (*Page, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: 分页查询必须指定 Limit", errs.ErrInvalidParameter)
	}
	query := c.buildQuery(collection, filters, opts, startAfter)
	docs, err := c.runQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	page := &Page{Documents: docs}
	if len(docs) == opts.Limit && opts.OrderBy != "" {
		last := docs[len(docs)-1]
		if v, ok := last.Data[opts.OrderBy]; ok {
			page.NextCursor = []any{v}
		}
	}
	return page, nil
}

// CountDocuments 聚合统计命中条数
func (c *Client) CountDocuments(ctx context.Context, collection string, filters map[string]any) (int64, error) {
	query := c.buildQuery(collection, filters, QueryOptions{}, nil)
	body := map[string]any{
		"structuredAggregationQuery": map[string]any{
			"structuredQuery": query,
			"aggregations": []map[string]any{
				{"alias": "total", "count": map[string]any{}},
			},
		},
	}
	var rows []aggregationRow
	if err := c.do(ctx, http.MethodPost, c.parent+":runAggregationQuery", nil, body, &rows); err != nil {
		return 0, err
	}
	for _, row := range rows {
		if v, ok := row.Result.AggregateFields["total"]; ok && v.IntegerValue != nil {
			n, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: 非法的聚合结果 %q", errs.ErrFirestoreRequest, *v.IntegerValue)
			}
			return n, nil
		}
	}
	return 0, nil
}

// DeleteAllDocuments 按条件分批清空集合。dryRun 只统计不删除
func (c *Client) DeleteAllDocuments(ctx context.Context, collection string, filters map[string]any, batchSize int, dryRun bool) (*DeleteAllResult, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	res := &DeleteAllResult{}
	// dryRun 不删除文档，翻页只能靠 offset 前移
	offset := 0
	for {
		docs, err := c.SearchDocuments(ctx, collection, filters, QueryOptions{Limit: batchSize, Offset: offset})
		if err != nil {
			return res, err
		}
		if len(docs) == 0 {
			return res, nil
		}
		res.Matched += len(docs)
		if dryRun {
			if len(docs) < batchSize {
				return res, nil
			}
			offset += len(docs)
			continue
		}
		ids := make([]string, 0, len(docs))
		for _, doc := range docs {
			ids = append(ids, doc.ID)
		}
		batch := c.DeleteMultipleDocuments(ctx, collection, ids)
		for _, r := range batch {
			if r.Status == domain.DispatchSucceeded {
				res.Deleted++
			}
		}
		res.Results = append(res.Results, batch...)
		if len(docs) < batchSize {
			return res, nil
		}
	}
}

// ---- 内部实现 ----

type documentResponse struct {
	Name       string           `json:"name"`
	Fields     map[string]Value `json:"fields"`
	CreateTime string           `json:"createTime"`
	UpdateTime string           `json:"updateTime"`
}

func (d documentResponse) toDocument() *Document {
	doc := &Document{
		Name:       d.Name,
		Data:       DecodeFields(d.Fields),
		CreateTime: d.CreateTime,
		UpdateTime: d.UpdateTime,
	}
	// 资源名最后一段是短 ID
	for i := len(d.Name) - 1; i >= 0; i-- {
		if d.Name[i] == '/' {
			doc.ID = d.Name[i+1:]
			break
		}
	}
	return doc
}

type aggregationRow struct {
	Result struct {
		AggregateFields map[string]Value `json:"aggregateFields"`
	} `json:"result"`
}

type queryRow struct {
	Document *documentResponse `json:"document"`
}

type structuredQuery struct {
	From    []collectionSelector `json:"from"`
	Where   *queryFilter         `json:"where,omitempty"`
	OrderBy []queryOrder         `json:"orderBy,omitempty"`
	StartAt *queryCursor         `json:"startAt,omitempty"`
	Offset  int                  `json:"offset,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
}

type collectionSelector struct {
	CollectionID string `json:"collectionId"`
}

type queryFilter struct {
	CompositeFilter *compositeFilter `json:"compositeFilter,omitempty"`
	FieldFilter     *fieldFilter     `json:"fieldFilter,omitempty"`
}

type compositeFilter struct {
	Op      string        `json:"op"`
	Filters []queryFilter `json:"filters"`
}

type fieldFilter struct {
	Field fieldReference `json:"field"`
	Op    string         `json:"op"`
	Value Value          `json:"value"`
}

type fieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type queryOrder struct {
	Field     fieldReference `json:"field"`
	Direction string         `json:"direction"`
}

type queryCursor struct {
	Values []Value `json:"values"`
	Before bool    `json:"before"`
}

func (c *Client) buildQuery(collection string, filters map[string]any, opts QueryOptions, startAfter []any) structuredQuery {
	query := structuredQuery{
		From:   []collectionSelector{{CollectionID: collection}},
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}
	if len(filters) > 0 {
		parts := make([]queryFilter, 0, len(filters))
		for field, value := range filters {
			parts = append(parts, queryFilter{
				FieldFilter: &fieldFilter{
					Field: fieldReference{FieldPath: field},
					Op:    "EQUAL",
					Value: EncodeValue(value),
				},
			})
		}
		if len(parts) == 1 {
			query.Where = &parts[0]
		} else {
			query.Where = &queryFilter{CompositeFilter: &compositeFilter{Op: "AND", Filters: parts}}
		}
	}
	if opts.OrderBy != "" {
		direction := "ASCENDING"
		if opts.Desc {
			direction = "DESCENDING"
		}
		query.OrderBy = append(query.OrderBy, queryOrder{
			Field:     fieldReference{FieldPath: opts.OrderBy},
			Direction: direction,
		})
	}
	if len(startAfter) > 0 {
		cursor := &queryCursor{Before: false}
		for _, v := range startAfter {
			cursor.Values = append(cursor.Values, EncodeValue(v))
		}
		query.StartAt = cursor
	}
	return query
}

func (c *Client) runQuery(ctx context.Context, query structuredQuery) ([]Document, error) {
	body := map[string]any{"structuredQuery": query}
	var rows []queryRow
	if err := c.do(ctx, http.MethodPost, c.parent+":runQuery", nil, body, &rows); err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		// 空结果时服务端会返回一条只带 readTime 的行
		if row.Document == nil {
			continue
		}
		docs = append(docs, *row.Document.toDocument())
	}
	return docs, nil
}

func (c *Client) collectionPath(collection string) string {
	return c.parent + "/" + collection
}

func (c *Client) documentPath(collection, documentID string) string {
	return c.parent + "/" + collection + "/" + documentID
}

// requestError 带状态码的请求错误，统一包在 ErrFirestoreRequest 下
type requestError struct {
	StatusCode int
	Body       string
}

func (e *requestError) Error() string {
	return fmt.Sprintf("status=%d body=%s", e.StatusCode, e.Body)
}

func isNotFound(err error) bool {
	var reqErr *requestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.cfg.BaseURL + "/" + path
	if query == nil {
		query = url.Values{}
	}
	if c.cfg.APIKey != "" {
		query.Set("key", c.cfg.APIKey)
	}
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrFirestoreRequest, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrFirestoreRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrFirestoreRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrFirestoreRequest, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %w", errs.ErrFirestoreRequest,
			&requestError{StatusCode: resp.StatusCode, Body: truncate(string(data), 512)})
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: 响应解析失败: %w", errs.ErrFirestoreRequest, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
