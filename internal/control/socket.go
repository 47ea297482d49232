// Package control provides a Unix socket server for CLI-to-daemon communication.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/paseo-app/desktopd/internal/attachments"
	"github.com/paseo-app/desktopd/internal/daemon"
	"github.com/paseo-app/desktopd/internal/shellexec"
	"github.com/paseo-app/desktopd/internal/update"
	"github.com/paseo-app/desktopd/internal/zoom"
)

// Request types for control commands.
const (
	CmdAttachmentsWrite  = "attachments.write"
	CmdAttachmentsCopy   = "attachments.copy"
	CmdAttachmentsRead   = "attachments.read"
	CmdAttachmentsDelete = "attachments.delete"
	CmdAttachmentsGC     = "attachments.gc"
	CmdDaemonVersion     = "daemon.version"
	CmdDaemonUpdate      = "daemon.update"
	CmdUpdateCheck       = "update.check"
	CmdUpdateInstall     = "update.install"
	CmdZoomGet           = "zoom.get"
	CmdZoomSet           = "zoom.set"
	CmdZoomIn            = "zoom.in"
	CmdZoomOut           = "zoom.out"
	CmdZoomReset         = "zoom.reset"
)

// Timeouts for control socket operations.
const (
	// SocketDialTimeout is the timeout for connecting to the control socket.
	SocketDialTimeout = 5 * time.Second
	// SocketReadWriteTimeout is the timeout for reading/writing on the socket.
	SocketReadWriteTimeout = 5 * time.Second
	// DaemonUpdateTimeout covers `paseo daemon update`, which may download.
	DaemonUpdateTimeout = 5 * time.Minute
	// InstallTimeout covers a full self-update download and install.
	InstallTimeout = 10 * time.Minute
)

// Request is a control command from the CLI.
type Request struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is a response to a control command.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// WriteRequest is the payload for attachments.write.
type WriteRequest struct {
	ID        string `json:"id"`
	Payload   string `json:"payload"` // base64-encoded file content
	Extension string `json:"extension,omitempty"`
}

// CopyRequest is the payload for attachments.copy.
type CopyRequest struct {
	ID         string `json:"id"`
	SourcePath string `json:"sourcePath"`
	Extension  string `json:"extension,omitempty"` // overrides the source file's extension
}

// ReadRequest is the payload for attachments.read.
type ReadRequest struct {
	Path string `json:"path"`
}

// ReadResponse is the response for attachments.read.
type ReadResponse struct {
	Payload string `json:"payload"` // base64-encoded file content
}

// DeleteRequest is the payload for attachments.delete.
type DeleteRequest struct {
	Path string `json:"path"`
}

// DeleteResponse is the response for attachments.delete. Deleted is false
// when the file was already gone or sat outside the managed directory.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// CollectRequest is the payload for attachments.gc.
type CollectRequest struct {
	ReferencedIDs []string `json:"referencedIds"`
}

// CollectResponse is the response for attachments.gc.
type CollectResponse struct {
	Collected int `json:"collected"`
}

// ZoomSetRequest is the payload for zoom.set.
type ZoomSetRequest struct {
	Factor float64 `json:"factor"`
}

// ZoomResponse is the response for all zoom commands.
type ZoomResponse struct {
	Factor float64 `json:"factor"`
}

// Server is a Unix socket control server.
type Server struct {
	socketPath string
	store      *attachments.Store
	runner     *shellexec.Runner
	zoomCtl    *zoom.Controller
	updater    *update.Updater
	listener   net.Listener
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewServer creates a new control server. updater may be nil when
// self-update is not configured; the update commands then report an error.
func NewServer(socketPath string, store *attachments.Store, runner *shellexec.Runner, zoomCtl *zoom.Controller, updater *update.Updater) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		store:      store,
		runner:     runner,
		zoomCtl:    zoomCtl,
		updater:    updater,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins listening on the control socket.
func (s *Server) Start() error {
	// Ensure parent directory exists
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	// Remove stale socket
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}

	// Restrict socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = listener
	log.Info().Str("path", s.socketPath).Msg("control socket listening")

	go s.acceptLoop()
	return nil
}

// Stop closes the control server.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	_ = os.Remove(s.socketPath)
	return nil
}

// SocketPath returns the socket path.
func (s *Server) SocketPath() string {
	return s.socketPath
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				log.Error().Err(err).Msg("control socket accept error")
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	// Requests must arrive promptly; handlers may run much longer (updates),
	// so the write deadline is set only once the response is ready.
	_ = conn.SetReadDeadline(time.Now().Add(SocketReadWriteTimeout))

	decoder := json.NewDecoder(conn)
	var req Request
	if err := decoder.Decode(&req); err != nil {
		s.sendError(conn, fmt.Errorf("decode request: %w", err))
		return
	}

	resp := s.handleCommand(req)

	_ = conn.SetWriteDeadline(time.Now().Add(SocketReadWriteTimeout))
	encoder := json.NewEncoder(conn)
	_ = encoder.Encode(resp)
}

func (s *Server) handleCommand(req Request) Response {
	switch req.Command {
	case CmdAttachmentsWrite:
		return s.handleWrite(req.Payload)
	case CmdAttachmentsCopy:
		return s.handleCopy(req.Payload)
	case CmdAttachmentsRead:
		return s.handleRead(req.Payload)
	case CmdAttachmentsDelete:
		return s.handleDelete(req.Payload)
	case CmdAttachmentsGC:
		return s.handleCollect(req.Payload)
	case CmdDaemonVersion:
		return successResponse(daemon.Version(s.runner))
	case CmdDaemonUpdate:
		return successResponse(daemon.Update(s.runner))
	case CmdUpdateCheck:
		return s.handleUpdateCheck()
	case CmdUpdateInstall:
		return s.handleUpdateInstall()
	case CmdZoomGet:
		return successResponse(ZoomResponse{Factor: s.zoomCtl.Factor()})
	case CmdZoomSet:
		return s.handleZoomSet(req.Payload)
	case CmdZoomIn:
		return successResponse(ZoomResponse{Factor: s.zoomCtl.In()})
	case CmdZoomOut:
		return successResponse(ZoomResponse{Factor: s.zoomCtl.Out()})
	case CmdZoomReset:
		return successResponse(ZoomResponse{Factor: s.zoomCtl.Reset()})
	default:
		return Response{Success: false, Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (s *Server) handleWrite(payload json.RawMessage) Response {
	var req WriteRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid payload: %v", err)}
	}

	info, err := s.store.WriteBase64(req.ID, req.Payload, req.Extension)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return successResponse(info)
}

func (s *Server) handleCopy(payload json.RawMessage) Response {
	var req CopyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid payload: %v", err)}
	}

	info, err := s.store.CopyFile(req.ID, req.SourcePath, req.Extension)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return successResponse(info)
}

func (s *Server) handleRead(payload json.RawMessage) Response {
	var req ReadRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid payload: %v", err)}
	}

	encoded, err := s.store.ReadBase64(req.Path)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return successResponse(ReadResponse{Payload: encoded})
}

func (s *Server) handleDelete(payload json.RawMessage) Response {
	var req DeleteRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid payload: %v", err)}
	}

	deleted, err := s.store.Delete(req.Path)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return successResponse(DeleteResponse{Deleted: deleted})
}

func (s *Server) handleCollect(payload json.RawMessage) Response {
	var req CollectRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid payload: %v", err)}
	}

	collected, err := s.store.Collect(req.ReferencedIDs)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return successResponse(CollectResponse{Collected: collected})
}

func (s *Server) handleUpdateCheck() Response {
	if s.updater == nil {
		return Response{Success: false, Error: "self-update is not configured"}
	}
	info, err := s.updater.Check()
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return successResponse(info)
}

func (s *Server) handleUpdateInstall() Response {
	if s.updater == nil {
		return Response{Success: false, Error: "self-update is not configured"}
	}
	result, err := s.updater.Install(nil)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return successResponse(result)
}

func (s *Server) handleZoomSet(payload json.RawMessage) Response {
	var req ZoomSetRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid payload: %v", err)}
	}
	return successResponse(ZoomResponse{Factor: s.zoomCtl.Set(req.Factor)})
}

func successResponse(data any) Response {
	encoded, err := json.Marshal(data)
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("encode response: %v", err)}
	}
	return Response{Success: true, Data: encoded}
}

func (s *Server) sendError(conn net.Conn, err error) {
	resp := Response{Success: false, Error: err.Error()}
	_ = json.NewEncoder(conn).Encode(resp)
}

// Client is a control socket client for CLI commands.
type Client struct {
	socketPath string
}

// NewClient creates a new control client.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Send sends a request and returns the response.
func (c *Client) Send(req Request) (*Response, error) {
	return c.send(req, SocketReadWriteTimeout)
}

func (c *Client) send(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, SocketDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to control socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &resp, nil
}

func (c *Client) call(command string, payload, result any, timeout time.Duration) error {
	req := Request{Command: command}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		req.Payload = encoded
	}

	resp, err := c.send(req, timeout)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// WriteAttachment stores base64-encoded content under the given id.
func (c *Client) WriteAttachment(id, payload, extension string) (*attachments.FileInfo, error) {
	var info attachments.FileInfo
	err := c.call(CmdAttachmentsWrite, WriteRequest{ID: id, Payload: payload, Extension: extension}, &info, SocketReadWriteTimeout)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// CopyAttachment imports an existing file into the store under the given id.
func (c *Client) CopyAttachment(id, sourcePath, extension string) (*attachments.FileInfo, error) {
	var info attachments.FileInfo
	err := c.call(CmdAttachmentsCopy, CopyRequest{ID: id, SourcePath: sourcePath, Extension: extension}, &info, SocketReadWriteTimeout)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ReadAttachment returns the base64-encoded content of a stored file.
func (c *Client) ReadAttachment(path string) (string, error) {
	var result ReadResponse
	if err := c.call(CmdAttachmentsRead, ReadRequest{Path: path}, &result, SocketReadWriteTimeout); err != nil {
		return "", err
	}
	return result.Payload, nil
}

// DeleteAttachment removes a stored file. It returns false without error
// when there was nothing to delete.
func (c *Client) DeleteAttachment(path string) (bool, error) {
	var result DeleteResponse
	if err := c.call(CmdAttachmentsDelete, DeleteRequest{Path: path}, &result, SocketReadWriteTimeout); err != nil {
		return false, err
	}
	return result.Deleted, nil
}

// CollectAttachments deletes stored files whose ids are not referenced and
// returns how many were removed.
func (c *Client) CollectAttachments(referencedIDs []string) (int, error) {
	if referencedIDs == nil {
		referencedIDs = []string{}
	}
	var result CollectResponse
	if err := c.call(CmdAttachmentsGC, CollectRequest{ReferencedIDs: referencedIDs}, &result, SocketReadWriteTimeout); err != nil {
		return 0, err
	}
	return result.Collected, nil
}

// DaemonVersion reports the version of the locally installed Paseo CLI.
func (c *Client) DaemonVersion() (*daemon.VersionResult, error) {
	var result daemon.VersionResult
	if err := c.call(CmdDaemonVersion, nil, &result, SocketReadWriteTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// DaemonUpdate runs `paseo daemon update` and returns the raw result.
func (c *Client) DaemonUpdate() (*shellexec.Result, error) {
	var result shellexec.Result
	if err := c.call(CmdDaemonUpdate, nil, &result, DaemonUpdateTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateCheck asks the daemon whether a newer desktop release exists.
func (c *Client) UpdateCheck() (*update.Info, error) {
	var info update.Info
	if err := c.call(CmdUpdateCheck, nil, &info, SocketReadWriteTimeout); err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateInstall asks the daemon to download and install the latest release.
func (c *Client) UpdateInstall() (*update.InstallResult, error) {
	var result update.InstallResult
	if err := c.call(CmdUpdateInstall, nil, &result, InstallTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

// ZoomGet returns the current zoom factor.
func (c *Client) ZoomGet() (float64, error) {
	return c.zoomCall(CmdZoomGet, nil)
}

// ZoomSet sets the zoom factor and returns the clamped value.
func (c *Client) ZoomSet(factor float64) (float64, error) {
	return c.zoomCall(CmdZoomSet, ZoomSetRequest{Factor: factor})
}

// ZoomIn increases the zoom by one step.
func (c *Client) ZoomIn() (float64, error) {
	return c.zoomCall(CmdZoomIn, nil)
}

// ZoomOut decreases the zoom by one step.
func (c *Client) ZoomOut() (float64, error) {
	return c.zoomCall(CmdZoomOut, nil)
}

// ZoomReset restores the default zoom factor.
func (c *Client) ZoomReset() (float64, error) {
	return c.zoomCall(CmdZoomReset, nil)
}

func (c *Client) zoomCall(command string, payload any) (float64, error) {
	var result ZoomResponse
	if err := c.call(command, payload, &result, SocketReadWriteTimeout); err != nil {
		return 0, err
	}
	return result.Factor, nil
}
