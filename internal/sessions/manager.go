package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rustyclaw/rustyclaw/internal/providers"
)

// Session is the in-memory view of one conversation: SessionMeta plus a
// cached, lazily-loaded copy of its transcript flattened into provider
// messages. The authoritative copy on disk is the append-only jsonl file
// under transcripts/; Messages here is a read cache kept in sync by
// AddMessage and rebuilt from disk on first access after a restart.
type Session struct {
	Key      string              `json:"key"`
	Hash     string              `json:"-"`
	Messages []providers.Message `json:"-"`
	Summary  string              `json:"summary,omitempty"`
	Created  time.Time           `json:"created"`
	Updated  time.Time           `json:"updated"`
	ResetAt  time.Time           `json:"resetAt,omitempty"`

	Model                      string `json:"model,omitempty"`
	Provider                   string `json:"provider,omitempty"`
	Channel                    string `json:"channel,omitempty"`
	InputTokens                int64  `json:"inputTokens,omitempty"`
	OutputTokens               int64  `json:"outputTokens,omitempty"`
	CompactionCount            int    `json:"compactionCount,omitempty"`
	MemoryFlushCompactionCount int    `json:"memoryFlushCompactionCount,omitempty"`
	MemoryFlushAt              int64  `json:"memoryFlushAt,omitempty"`
	Label                      string `json:"label,omitempty"`
	SpawnedBy                  string `json:"spawnedBy,omitempty"`
	SpawnDepth                 int    `json:"spawnDepth,omitempty"`

	ContextWindow    int `json:"contextWindow,omitempty"`
	LastPromptTokens int `json:"lastPromptTokens,omitempty"`
	LastMessageCount int `json:"lastMessageCount,omitempty"`

	loaded bool // transcript cache has been populated from disk
}

// Manager owns the directory layout {root}/sessions.json (meta index) and
// {root}/transcripts/{hash}.jsonl (one append-only log per session),
// matching the store described in §4.2. Meta lives fully in memory and is
// flushed to sessions.json on most mutations; the context-window and
// prompt-token cache setters and TruncateHistory leave the flush to Save.
// Transcripts are read lazily and appended incrementally.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	writerLocks   map[string]*sync.Mutex
	writerLocksMu sync.Mutex

	storage string
}

func NewManager(storage string) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		writerLocks: make(map[string]*sync.Mutex),
		storage:     storage,
	}
	if storage != "" {
		os.MkdirAll(filepath.Join(storage, "transcripts"), 0755)
		m.loadMetaIndex()
	}
	return m
}

// SessionKey builds a composite session key: agent:{agentId}:{scopeKey}
func SessionKey(agentID, scopeKey string) string {
	return "agent:" + agentID + ":" + scopeKey
}

// hashKey derives the stable on-disk filename for a session key: a short
// domain tag plus a hash of the canonical key, per §3's SessionKey note.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "sess_" + hex.EncodeToString(sum[:])[:16]
}

func (m *Manager) writerLock(key string) *sync.Mutex {
	m.writerLocksMu.Lock()
	defer m.writerLocksMu.Unlock()
	l, ok := m.writerLocks[key]
	if !ok {
		l = &sync.Mutex{}
		m.writerLocks[key] = l
	}
	return l
}

// GetOrCreate returns an existing session or creates and persists a new
// one before returning, per §4.2's get_or_create semantics.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		m.ensureLoaded(s)
		return s
	}

	now := time.Now()
	s := &Session{
		Key:      key,
		Hash:     hashKey(key),
		Messages: []providers.Message{},
		Created:  now,
		Updated:  now,
		loaded:   true,
	}
	m.sessions[key] = s
	m.mu.Unlock()

	m.persistMetaIndex()
	return s
}

// ensureLoaded populates a session's transcript cache from disk the first
// time it's needed after process start (§4.2 "lazily-loaded transcript
// cache").
func (m *Manager) ensureLoaded(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.loaded || m.storage == "" {
		s.loaded = true
		return
	}
	entries, err := replayTranscript(m.storage, s.Hash)
	if err == nil {
		msgs := make([]providers.Message, 0, len(entries))
		for _, e := range entries {
			if msg, ok := e.toMessage(); ok {
				msgs = append(msgs, msg)
			}
		}
		s.Messages = msgs
	}
	s.loaded = true
}

// AddMessage appends a message to a session's transcript, fsyncing the
// jsonl file before returning and bumping last_updated_at.
func (m *Manager) AddMessage(key string, msg providers.Message) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok {
		s = &Session{Key: key, Hash: hashKey(key), Messages: []providers.Message{}, Created: time.Now(), loaded: true}
		m.sessions[key] = s
	}
	m.mu.Unlock()
	m.ensureLoaded(s)

	lock := m.writerLock(key)
	lock.Lock()
	defer lock.Unlock()

	if m.storage != "" {
		if err := appendTranscript(m.storage, s.Hash, entriesFromMessage(msg)); err != nil {
			return // persistence error: caller sees no change, per §7 persistence-error handling
		}
	}

	m.mu.Lock()
	s.Messages = append(s.Messages, msg)
	s.Updated = time.Now()
	m.mu.Unlock()
	m.persistMetaIndex()
}

// GetHistory returns a copy of the cached message history.
func (m *Manager) GetHistory(key string) []providers.Message {
	m.mu.RLock()
	s, ok := m.sessions[key]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	m.ensureLoaded(s)

	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := make([]providers.Message, len(s.Messages))
	copy(msgs, s.Messages)
	return msgs
}

func (m *Manager) GetSummary(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.Summary
	}
	return ""
}

func (m *Manager) SetSummary(key, summary string) {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		s.Summary = summary
		s.Updated = time.Now()
	}
	m.mu.Unlock()
	m.persistMetaIndex()
}

func (m *Manager) SetLabel(key, label string) {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		s.Label = label
		s.Updated = time.Now()
	}
	m.mu.Unlock()
	m.persistMetaIndex()
}

func (m *Manager) UpdateMetadata(key, model, provider, channel string) {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		if model != "" {
			s.Model = model
		}
		if provider != "" {
			s.Provider = provider
		}
		if channel != "" {
			s.Channel = channel
		}
	}
	m.mu.Unlock()
	m.persistMetaIndex()
}

func (m *Manager) AccumulateTokens(key string, inputTokens, outputTokens int64) {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		s.InputTokens += inputTokens
		s.OutputTokens += outputTokens
	}
	m.mu.Unlock()
	m.persistMetaIndex()
}

func (m *Manager) IncrementCompaction(key string) {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		s.CompactionCount++
	}
	m.mu.Unlock()
	m.persistMetaIndex()
}

func (m *Manager) GetCompactionCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.CompactionCount
	}
	return 0
}

func (m *Manager) GetMemoryFlushCompactionCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.MemoryFlushCompactionCount
	}
	return -1
}

func (m *Manager) SetMemoryFlushDone(key string) {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		s.MemoryFlushCompactionCount = s.CompactionCount
		s.MemoryFlushAt = time.Now().UnixMilli()
	}
	m.mu.Unlock()
	m.persistMetaIndex()
}

func (m *Manager) SetSpawnInfo(key, spawnedBy string, depth int) {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		s.SpawnedBy = spawnedBy
		s.SpawnDepth = depth
	}
	m.mu.Unlock()
	m.persistMetaIndex()
}

func (m *Manager) SetContextWindow(key string, cw int) {
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		s.ContextWindow = cw
	}
	m.mu.Unlock()
}

func (m *Manager) GetContextWindow(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.ContextWindow
	}
	return 0
}

func (m *Manager) SetLastPromptTokens(key string, tokens, msgCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		s.LastPromptTokens = tokens
		s.LastMessageCount = msgCount
	}
}

func (m *Manager) GetLastPromptTokens(key string) (int, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.LastPromptTokens, s.LastMessageCount
	}
	return 0, 0
}

// TruncateHistory keeps only the last N messages in the read cache. This
// affects what future prompt assembly sees; it does not rewrite the
// on-disk transcript, which remains append-only per §3.
func (m *Manager) TruncateHistory(key string, keepLast int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		return
	}
	if keepLast <= 0 {
		s.Messages = []providers.Message{}
	} else if len(s.Messages) > keepLast {
		s.Messages = s.Messages[len(s.Messages)-keepLast:]
	}
	s.Updated = time.Now()
}

// Reset truncates the transcript file and clears the read cache, but
// preserves SessionMeta (recording last_reset_at), per §4.2.
func (m *Manager) Reset(key string) {
	lock := m.writerLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	s.Messages = []providers.Message{}
	s.Summary = ""
	s.ResetAt = time.Now()
	s.Updated = s.ResetAt
	hash := s.Hash
	m.mu.Unlock()

	if m.storage != "" {
		_ = os.Truncate(transcriptPath(m.storage, hash), 0)
	}
	m.persistMetaIndex()
}

// Delete removes both the transcript and the meta entry.
func (m *Manager) Delete(key string) error {
	lock := m.writerLock(key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok && m.storage != "" {
		if err := os.Remove(transcriptPath(m.storage, s.Hash)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	m.persistMetaIndex()
	return nil
}

// List returns metadata for all sessions, optionally filtered by agent ID.
func (m *Manager) List(agentID string) []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []SessionInfo
	prefix := ""
	if agentID != "" {
		prefix = "agent:" + agentID + ":"
	}

	for key, s := range m.sessions {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		result = append(result, SessionInfo{
			Key:          key,
			MessageCount: len(s.Messages),
			Created:      s.Created,
			Updated:      s.Updated,
		})
	}
	return result
}

// LastUsedChannel finds the most recently updated channel session for an
// agent and extracts channel + chatID from the key.
func (m *Manager) LastUsedChannel(agentID string) (channel, chatID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := "agent:" + agentID + ":"
	var bestKey string
	var bestUpdated time.Time

	for key, s := range m.sessions {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if strings.HasPrefix(rest, "cron:") || strings.HasPrefix(rest, "subagent:") || strings.HasPrefix(rest, "heartbeat:") {
			continue
		}
		if s.Updated.After(bestUpdated) {
			bestUpdated = s.Updated
			bestKey = key
		}
	}

	if bestKey == "" {
		return "", ""
	}

	parts := strings.SplitN(bestKey, ":", 5)
	if len(parts) >= 5 {
		return parts[2], parts[4]
	}
	return "", ""
}

// SessionInfo is a lightweight session descriptor for listing.
type SessionInfo struct {
	Key          string    `json:"key"`
	MessageCount int       `json:"messageCount"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

// Save flushes the meta index. Transcript entries are already durable by
// the time AddMessage returns, so this only needs to cover meta fields
// that aren't flushed eagerly (e.g. context-window cache).
func (m *Manager) Save(key string) error {
	return m.persistMetaIndex()
}

// metaFile mirrors the fields of Session persisted to sessions.json,
// keyed by session key, plus the hash used to locate its transcript.
type metaFile struct {
	Hash string `json:"hash"`
	Session
}

func (m *Manager) persistMetaIndex() error {
	if m.storage == "" {
		return nil
	}

	m.mu.RLock()
	out := make(map[string]metaFile, len(m.sessions))
	for k, s := range m.sessions {
		out[k] = metaFile{Hash: s.Hash, Session: *s}
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(m.storage, "sessions.json")
	tmp, err := os.CreateTemp(m.storage, "sessions-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	cleanup = false
	return nil
}

func (m *Manager) loadMetaIndex() {
	path := filepath.Join(m.storage, "sessions.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var in map[string]metaFile
	if err := json.Unmarshal(data, &in); err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, mf := range in {
		s := mf.Session
		s.Key = k
		s.Hash = mf.Hash
		if s.Hash == "" {
			s.Hash = hashKey(k)
		}
		s.Messages = []providers.Message{}
		s.loaded = false
		sc := s
		m.sessions[k] = &sc
	}
}
