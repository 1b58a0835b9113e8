// Package ipc exposes the daemon's state to renderer clients over a unix
// socket. Every state change is broadcast as one JSON frame per line; clients
// send signed integers back to scroll by hand.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// Frame is one rendered snapshot of the daemon's state.
type Frame struct {
	Lines  []string `json:"lines"`
	Offset int      `json:"offset"`
	Mode   string   `json:"mode"`
	Source string   `json:"source"`
	Status string   `json:"status"`
}

type Server struct {
	socketPath      string
	listener        net.Listener
	clientConns     map[net.Conn]struct{}
	clientConnsLock sync.Mutex
	lastFrame       []byte
	lastFrameLock   sync.Mutex
	scrolls         chan int
	lockFile        *os.File
	lockFilePath    string
}

func NewServer(socketPath string) *Server {
	return &Server{
		socketPath:   socketPath,
		clientConns:  make(map[net.Conn]struct{}),
		scrolls:      make(chan int, 16),
		lockFilePath: socketPath + ".lock",
	}
}

// Scrolls delivers manual scroll deltas sent by connected clients.
func (s *Server) Scrolls() <-chan int {
	return s.scrolls
}

func (s *Server) checkAndCleanOldLock() error {
	if _, err := os.Stat(s.lockFilePath); os.IsNotExist(err) {
		return nil
	}

	content, err := os.ReadFile(s.lockFilePath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read lock file, removing it")
		os.Remove(s.lockFilePath)
		return nil
	}

	pidStr := strings.TrimSpace(string(content))
	if pidStr == "" {
		log.Warn().Msg("Lock file is empty, removing it")
		os.Remove(s.lockFilePath)
		return nil
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		log.Warn().Err(err).Str("pid_str", pidStr).Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return nil
	}

	// kill with signal 0 only checks for existence
	if syscall.Kill(pid, 0) != nil {
		log.Info().Int("old_pid", pid).Msg("Process in lock file is not running, removing lock file")
		os.Remove(s.lockFilePath)
		return nil
	}

	log.Info().Int("existing_pid", pid).Msg("Another process is still running")
	return nil
}

func (s *Server) acquireLock() error {
	if err := s.checkAndCleanOldLock(); err != nil {
		log.Warn().Err(err).Msg("Failed to clean old lock file")
	}

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("another lyricsd instance is already running")
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	_, err = file.WriteString(fmt.Sprintf("%d\n", os.Getpid()))
	if err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	log.Info().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile != nil {
		syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
		s.lockFile.Close()
		os.Remove(s.lockFilePath)
		log.Info().Str("lock_file", s.lockFilePath).Msg("Released process lock")
		s.lockFile = nil
	}
}

func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener

	log.Info().Str("socket_path", s.socketPath).Msg("IPC server listening")

	go s.acceptConnections()

	return nil
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if strings.Contains(err.Error(), "use of closed network connection") {
				return
			}
			log.Error().Err(err).Msg("Failed to accept IPC connection")
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	s.clientConnsLock.Lock()
	s.clientConns[conn] = struct{}{}
	s.clientConnsLock.Unlock()

	log.Info().Msg("Renderer client connected")

	// replay the last frame so a freshly attached renderer has something
	// to show before the next state change
	s.lastFrameLock.Lock()
	frame := s.lastFrame
	s.lastFrameLock.Unlock()
	if frame != nil {
		if _, err := conn.Write(frame); err != nil {
			log.Error().Err(err).Msg("Failed to send initial frame")
		}
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		delta, err := strconv.Atoi(line)
		if err != nil {
			log.Warn().Str("input", line).Msg("Ignoring malformed scroll command")
			continue
		}
		select {
		case s.scrolls <- delta:
		default:
			// drop when the session loop is behind, manual scrolling
			// must never block a client
		}
	}

	s.clientConnsLock.Lock()
	delete(s.clientConns, conn)
	s.clientConnsLock.Unlock()
	conn.Close()
	log.Info().Msg("Renderer client disconnected")
}

// Broadcast sends the frame to every connected client and keeps it for
// replay to clients that connect later.
func (s *Server) Broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode frame")
		return
	}
	data = append(data, '\n')

	s.lastFrameLock.Lock()
	s.lastFrame = data
	s.lastFrameLock.Unlock()

	s.clientConnsLock.Lock()
	defer s.clientConnsLock.Unlock()

	for conn := range s.clientConns {
		_, err := conn.Write(data)
		if err != nil {
			log.Error().Err(err).Msg("Failed to write to client, removing")
			conn.Close()
			delete(s.clientConns, conn)
		}
	}
}

func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.releaseLock()
}
