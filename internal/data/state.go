package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"
)

// stateRepo implements the durable state repository as a single JSON
// snapshot. Every mutation rewrites the whole file before returning;
// all mutations are serialized by one mutex so read-modify-write
// sequences never interleave. The file is exclusively owned by this
// process.
type stateRepo struct {
	path string

	mu   sync.Mutex
	data *storeData
}

// storeData is the durable representation. Map keys are decimal strings
// for JSON compatibility with the historical data.json layout.
type storeData struct {
	Users       map[string]*userRecord              `json:"users"`
	Warnings    map[string]map[string]int           `json:"warnings"`
	Banned      map[string][]int64                  `json:"banned"`
	Files       map[string]*domain.FileEntry        `json:"files"`
	Channels    []int64                             `json:"channels"`
	ChatsConfig map[string]*domain.StoredChatConfig `json:"chats_config"`
}

type userRecord struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Username  string  `json:"username"`
	Chats     []int64 `json:"chats"`
}

func defaultStoreData() *storeData {
	return &storeData{
		Users:       make(map[string]*userRecord),
		Warnings:    make(map[string]map[string]int),
		Banned:      make(map[string][]int64),
		Files:       make(map[string]*domain.FileEntry),
		Channels:    []int64{},
		ChatsConfig: make(map[string]*domain.StoredChatConfig),
	}
}

// ensureMaps backfills maps missing from an older or hand-edited file
func (d *storeData) ensureMaps() {
	if d.Users == nil {
		d.Users = make(map[string]*userRecord)
	}
	if d.Warnings == nil {
		d.Warnings = make(map[string]map[string]int)
	}
	if d.Banned == nil {
		d.Banned = make(map[string][]int64)
	}
	if d.Files == nil {
		d.Files = make(map[string]*domain.FileEntry)
	}
	if d.ChatsConfig == nil {
		d.ChatsConfig = make(map[string]*domain.StoredChatConfig)
	}
}

// NewStateRepo opens (or creates) the state file. A missing file is
// initialized with defaults and persisted immediately; an unreadable or
// corrupt file is logged and replaced by defaults rather than crashing.
func NewStateRepo(path string) (repo.StateRepo, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	r := &stateRepo{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		r.data = defaultStoreData()
		if err := r.persistLocked(); err != nil {
			return nil, fmt.Errorf("failed to initialize state file: %w", err)
		}
	case err != nil:
		log.Printf("[State] Failed to read %s, starting empty: %v", path, err)
		r.data = defaultStoreData()
	default:
		var loaded storeData
		if err := json.Unmarshal(raw, &loaded); err != nil {
			log.Printf("[State] Corrupt state file %s, starting empty: %v", path, err)
			r.data = defaultStoreData()
		} else {
			loaded.ensureMaps()
			r.data = &loaded
		}
	}

	return r, nil
}

// persistLocked rewrites the full snapshot. Caller holds the mutex (or
// is the constructor). Write goes to a temp file first, then renames
// over the old snapshot so a crash mid-write cannot corrupt it.
func (r *stateRepo) persistLocked() error {
	raw, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// saveLocked persists and degrades gracefully on failure: the in-memory
// copy stays the working truth and the mutation is still reported as
// applied. The delta is lost only if the process dies before the next
// successful write.
func (r *stateRepo) saveLocked() {
	if err := r.persistLocked(); err != nil {
		log.Printf("[State] Failed to persist state: %v", err)
	}
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// RegisterUser upserts a user and records chat membership
func (r *stateRepo) RegisterUser(ctx context.Context, user *domain.User, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid := key(user.ID)
	rec, ok := r.data.Users[uid]
	changed := false
	if !ok {
		rec = &userRecord{Chats: []int64{}}
		r.data.Users[uid] = rec
		changed = true
	}
	if rec.FirstName != user.FirstName || rec.LastName != user.LastName || rec.Username != user.Username {
		rec.FirstName = user.FirstName
		rec.LastName = user.LastName
		rec.Username = user.Username
		changed = true
	}
	if chatID != 0 && !containsID(rec.Chats, chatID) {
		rec.Chats = append(rec.Chats, chatID)
		changed = true
	}

	if changed {
		r.saveLocked()
	}
	return nil
}

// ListUsers returns every registered user, sorted by ID for stable output
func (r *stateRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]domain.User, 0, len(r.data.Users))
	for uid, rec := range r.data.Users {
		id, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			continue
		}
		result = append(result, domain.User{
			ID:        id,
			FirstName: rec.FirstName,
			LastName:  rec.LastName,
			Username:  rec.Username,
			Chats:     append([]int64(nil), rec.Chats...),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// IncrementWarning bumps the warning count and returns the new value
func (r *stateRepo) IncrementWarning(ctx context.Context, chatID, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ckey := key(chatID)
	if r.data.Warnings[ckey] == nil {
		r.data.Warnings[ckey] = make(map[string]int)
	}
	r.data.Warnings[ckey][key(userID)]++
	count := r.data.Warnings[ckey][key(userID)]
	r.saveLocked()
	return count, nil
}

// ResetWarnings zeroes the count for (chat, user)
func (r *stateRepo) ResetWarnings(ctx context.Context, chatID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.data.Warnings[key(chatID)]
	if !ok || chat[key(userID)] == 0 {
		return nil
	}
	chat[key(userID)] = 0
	r.saveLocked()
	return nil
}

// WarningCount returns the current count for (chat, user)
func (r *stateRepo) WarningCount(ctx context.Context, chatID, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Warnings[key(chatID)][key(userID)], nil
}

// RecordBan adds (chat, user) to the ban ledger
func (r *stateRepo) RecordBan(ctx context.Context, chatID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ckey := key(chatID)
	if containsID(r.data.Banned[ckey], userID) {
		return nil
	}
	r.data.Banned[ckey] = append(r.data.Banned[ckey], userID)
	r.saveLocked()
	return nil
}

// ClearBan removes (chat, user) from the ban ledger
func (r *stateRepo) ClearBan(ctx context.Context, chatID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ckey := key(chatID)
	banned := r.data.Banned[ckey]
	for i, id := range banned {
		if id == userID {
			r.data.Banned[ckey] = append(banned[:i], banned[i+1:]...)
			r.saveLocked()
			return nil
		}
	}
	return nil
}

// IsBanned checks the ban ledger
func (r *stateRepo) IsBanned(ctx context.Context, chatID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return containsID(r.data.Banned[key(chatID)], userID), nil
}

// AddFile adds or replaces a file registry entry
func (r *stateRepo) AddFile(ctx context.Context, entry domain.FileEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := entry
	r.data.Files[entry.Key] = &stored
	r.saveLocked()
	return nil
}

// RemoveFile deletes a file registry entry
func (r *stateRepo) RemoveFile(ctx context.Context, fileKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data.Files[fileKey]; !ok {
		return nil
	}
	delete(r.data.Files, fileKey)
	r.saveLocked()
	return nil
}

// GetFile looks up a file entry, nil if absent
func (r *stateRepo) GetFile(ctx context.Context, fileKey string) (*domain.FileEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.data.Files[fileKey]
	if !ok {
		return nil, nil
	}
	entry := *stored
	entry.Key = fileKey
	return &entry, nil
}

// ListFiles returns all file entries sorted by key
func (r *stateRepo) ListFiles(ctx context.Context) ([]domain.FileEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]domain.FileEntry, 0, len(r.data.Files))
	for fileKey, stored := range r.data.Files {
		entry := *stored
		entry.Key = fileKey
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Channels returns the configured broadcast channel IDs
func (r *stateRepo) Channels(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.data.Channels...), nil
}

// ObserveChannel records a channel as a broadcast target
func (r *stateRepo) ObserveChannel(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if containsID(r.data.Channels, chatID) {
		return nil
	}
	r.data.Channels = append(r.data.Channels, chatID)
	r.saveLocked()
	return nil
}

// ChatConfig returns the stored per-chat config, nil if never set
func (r *stateRepo) ChatConfig(ctx context.Context, chatID int64) (*domain.StoredChatConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.data.ChatsConfig[key(chatID)]
	if !ok {
		return nil, nil
	}
	clone := *stored
	clone.BannedWords = append([]string(nil), stored.BannedWords...)
	return &clone, nil
}

// SaveChatConfig persists the per-chat config
func (r *stateRepo) SaveChatConfig(ctx context.Context, chatID int64, cfg *domain.StoredChatConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *cfg
	clone.BannedWords = append([]string(nil), cfg.BannedWords...)
	r.data.ChatsConfig[key(chatID)] = &clone
	r.saveLocked()
	return nil
}

// Close performs a final flush
func (r *stateRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked()
}

func containsID(ids []int64, id int64) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
