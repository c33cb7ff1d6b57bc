package workflow

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

type userRecord struct {
	passwordHash   []byte
	locked         bool
	failedAttempts int
}

func (record *userRecord) matches(password string) bool {
	return bcrypt.CompareHashAndPassword(record.passwordHash, []byte(password)) == nil
}

// UserStatus is a read-only view of a user's lockout state.
type UserStatus struct {
	Locked         bool
	FailedAttempts int
}

// UserTable holds the credentials AuthGuard checks. Passwords are stored as bcrypt hashes.
type UserTable struct {
	mutex sync.Mutex
	cost  int
	users map[string]*userRecord
}

// NewUserTable returns an empty table hashing with the given bcrypt cost
// (bcrypt.DefaultCost when cost is zero).
func NewUserTable(cost int) *UserTable {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserTable{cost: cost, users: make(map[string]*userRecord)}
}

// Register adds a user with a plaintext password.
func (table *UserTable) Register(username string, password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), table.cost)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return table.RegisterHash(username, hash)
}

// RegisterHash adds a user with an existing bcrypt hash.
func (table *UserTable) RegisterHash(username string, passwordHash []byte) error {
	normalized := strings.TrimSpace(username)
	if normalized == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidUsername)
	}
	if _, err := bcrypt.Cost(passwordHash); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	table.mutex.Lock()
	defer table.mutex.Unlock()
	if _, exists := table.users[normalized]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, normalized)
	}
	table.users[normalized] = &userRecord{passwordHash: passwordHash}
	return nil
}

// Status reports the lockout state of a user.
func (table *UserTable) Status(username string) (UserStatus, bool) {
	var status UserStatus
	found, _ := table.withUser(username, func(record *userRecord) error {
		status = UserStatus{Locked: record.locked, FailedAttempts: record.failedAttempts}
		return nil
	})
	return status, found
}

// Unlock clears the lock and the failed-attempt counter.
func (table *UserTable) Unlock(username string) bool {
	found, _ := table.withUser(username, func(record *userRecord) error {
		record.locked = false
		record.failedAttempts = 0
		return nil
	})
	return found
}

func (table *UserTable) withUser(username string, fn func(record *userRecord) error) (bool, error) {
	if table == nil {
		return false, nil
	}
	table.mutex.Lock()
	defer table.mutex.Unlock()
	record, found := table.users[username]
	if !found {
		return false, nil
	}
	return true, fn(record)
}

// Membership is the borrowing entitlement of one member.
type Membership struct {
	Active      bool
	BorrowLimit Quantity
}

// MemberRegistry maps member ids to memberships.
type MemberRegistry struct {
	mutex   sync.RWMutex
	members map[string]Membership
}

// NewMemberRegistry returns an empty registry.
func NewMemberRegistry() *MemberRegistry {
	return &MemberRegistry{members: make(map[string]Membership)}
}

// Register adds a member.
func (registry *MemberRegistry) Register(memberID ResourceID, membership Membership) error {
	if memberID.IsZero() {
		return fmt.Errorf("%w: empty member id", ErrInvalidResourceID)
	}
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if _, exists := registry.members[memberID.String()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMember, memberID)
	}
	registry.members[memberID.String()] = membership
	return nil
}

// Lookup returns the membership of a member.
func (registry *MemberRegistry) Lookup(memberID ResourceID) (Membership, bool) {
	if registry == nil {
		return Membership{}, false
	}
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	membership, found := registry.members[memberID.String()]
	return membership, found
}

// SetActive renews or expires a membership.
func (registry *MemberRegistry) SetActive(memberID ResourceID, active bool) bool {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	membership, found := registry.members[memberID.String()]
	if !found {
		return false
	}
	membership.Active = active
	registry.members[memberID.String()] = membership
	return true
}

// FileSet is the set of paths StorageGuard accepts.
type FileSet struct {
	mutex sync.RWMutex
	paths map[string]struct{}
}

// NewFileSet returns a set containing paths.
func NewFileSet(paths ...string) *FileSet {
	set := &FileSet{paths: make(map[string]struct{}, len(paths))}
	for _, path := range paths {
		set.Add(path)
	}
	return set
}

// Add inserts a path.
func (set *FileSet) Add(path string) {
	set.mutex.Lock()
	defer set.mutex.Unlock()
	set.paths[path] = struct{}{}
}

// Contains reports whether path is in the set.
func (set *FileSet) Contains(path string) bool {
	if set == nil {
		return false
	}
	set.mutex.RLock()
	defer set.mutex.RUnlock()
	_, found := set.paths[path]
	return found
}

// Paths returns the sorted paths.
func (set *FileSet) Paths() []string {
	set.mutex.RLock()
	defer set.mutex.RUnlock()
	paths := make([]string, 0, len(set.paths))
	for path := range set.paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
