package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ivlev/slidesync/internal/audio"
	"github.com/ivlev/slidesync/internal/exporterr"
	"go.uber.org/zap"
)

// DefaultBatchSize is two seconds of frames at 30 FPS.
const DefaultBatchSize = 60

// RemoteEncoder streams frames to a session server in batches. Each batch
// is awaited before more frames are buffered, so at most one batch is held
// in memory.
type RemoteEncoder struct {
	baseURL   string
	client    *http.Client
	batchSize int
	logger    *zap.Logger

	sessionID  string
	pending    [][]byte
	batchStart int
	next       int
}

func NewRemoteEncoder(baseURL string, client *http.Client, batchSize int, logger *zap.Logger) *RemoteEncoder {
	if client == nil {
		client = http.DefaultClient
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteEncoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SessionID of the open session, empty before Start.
func (e *RemoteEncoder) SessionID() string {
	return e.sessionID
}

// Load checks that the server answers.
func (e *RemoteEncoder) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return exporterr.Network("health", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return exporterr.Network("health", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return exporterr.Network("health", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

// Start uploads the soundtrack and opens a session.
func (e *RemoteEncoder) Start(ctx context.Context, track *audio.Track) error {
	if len(track.Data) == 0 {
		return exporterr.AudioDecode("init session", fmt.Errorf("track %q has no encoded audio", track.Name))
	}
	body, contentType, err := audioForm(track.Name, track.Data)
	if err != nil {
		return exporterr.Network("init session", err)
	}

	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := e.postJSON(ctx, "init session", "/api/sessions", body, contentType, http.StatusCreated, &out); err != nil {
		return err
	}
	if out.SessionID == "" {
		return exporterr.Network("init session", fmt.Errorf("empty session id"))
	}

	e.sessionID = out.SessionID
	e.pending = e.pending[:0]
	e.batchStart, e.next = 0, 0
	e.logger.Info("remote session opened", zap.String("session", e.sessionID))
	return nil
}

func (e *RemoteEncoder) WriteFrame(ctx context.Context, index int, jpeg []byte) error {
	if e.sessionID == "" {
		return exporterr.Session("write frame", fmt.Errorf("no session"))
	}
	if index != e.next {
		return exporterr.Encode("write frame", fmt.Errorf("frame %d out of order, expected %d", index, e.next))
	}
	e.pending = append(e.pending, jpeg)
	e.next++
	if len(e.pending) >= e.batchSize {
		return e.flush(ctx)
	}
	return nil
}

func (e *RemoteEncoder) flush(ctx context.Context) error {
	if len(e.pending) == 0 {
		return nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("start_index", strconv.Itoa(e.batchStart)); err != nil {
		return exporterr.Network("append chunk", err)
	}
	for i, frame := range e.pending {
		fw, err := mw.CreateFormFile("frames", fmt.Sprintf("%06d.jpg", e.batchStart+i))
		if err != nil {
			return exporterr.Network("append chunk", err)
		}
		if _, err := fw.Write(frame); err != nil {
			return exporterr.Network("append chunk", err)
		}
	}
	if err := mw.Close(); err != nil {
		return exporterr.Network("append chunk", err)
	}

	var out struct {
		Appended int `json:"appended"`
	}
	path := "/api/sessions/" + url.PathEscape(e.sessionID) + "/chunks"
	if err := e.postJSON(ctx, "append chunk", path, &buf, mw.FormDataContentType(), http.StatusOK, &out); err != nil {
		return err
	}
	want := e.batchStart + len(e.pending)
	if out.Appended != want {
		return exporterr.Session("append chunk", fmt.Errorf("server holds %d frames, expected %d", out.Appended, want))
	}

	e.logger.Debug("chunk appended", zap.Int("start", e.batchStart), zap.Int("frames", len(e.pending)))
	e.batchStart = want
	e.pending = e.pending[:0]
	return nil
}

// Finalize flushes the last partial batch and asks the server to mux.
func (e *RemoteEncoder) Finalize(ctx context.Context, fps int) (*Blob, error) {
	if e.sessionID == "" {
		return nil, exporterr.Session("finalize", fmt.Errorf("no session"))
	}
	if err := e.flush(ctx); err != nil {
		return nil, err
	}

	form := url.Values{"fps": {strconv.Itoa(fps)}}
	path := "/api/sessions/" + url.PathEscape(e.sessionID) + "/finalize"
	resp, err := e.post(ctx, "finalize", path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus("finalize", resp, http.StatusOK); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exporterr.Network("finalize", err)
	}
	e.sessionID = ""

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "video/mp4"
	}
	return &Blob{Data: data, MimeType: mime}, nil
}

func (e *RemoteEncoder) post(ctx context.Context, op, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, body)
	if err != nil {
		return nil, exporterr.Network(op, err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, exporterr.Network(op, err)
	}
	return resp, nil
}

func (e *RemoteEncoder) postJSON(ctx context.Context, op, path string, body io.Reader, contentType string, wantStatus int, out any) error {
	resp, err := e.post(ctx, op, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp, wantStatus); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return exporterr.Network(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// checkStatus maps a lost session to a session error and any other
// unexpected status to a network error.
func checkStatus(op string, resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return exporterr.Session(op, err)
	}
	return exporterr.Network(op, err)
}

func audioForm(name string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
