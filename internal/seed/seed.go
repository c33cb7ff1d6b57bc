// Package seed loads YAML fixtures into the in-memory collaborators the
// pipelines run against.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

var (
	ErrInvalidFixture = errors.New("invalid fixture")
	ErrReadFixture    = errors.New("read fixture")

	errMissingDailyLimit = errors.New("missing")
)

// Defaults names the resources callers use when a request omits them.
type Defaults struct {
	Wallet     string `yaml:"wallet"`
	ATM        string `yaml:"atm"`
	Volume     string `yaml:"volume"`
	DailyLimit string `yaml:"daily_limit"`
}

// User is a login fixture. Exactly one of Password and PasswordHash is set.
type User struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// Member is a library member fixture.
type Member struct {
	ID          string `yaml:"id"`
	Active      bool   `yaml:"active"`
	BorrowLimit int64  `yaml:"borrow_limit"`
	Borrowed    int64  `yaml:"borrowed"`
}

// Book is a catalog fixture.
type Book struct {
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	ISBN     string `yaml:"isbn"`
	Year     string `yaml:"year"`
	Genre    string `yaml:"genre"`
	Borrowed bool   `yaml:"borrowed"`
}

// Fixture is the YAML document.
type Fixture struct {
	Defaults Defaults          `yaml:"defaults"`
	Stock    map[string]string `yaml:"stock"`
	Accounts map[string]string `yaml:"accounts"`
	Volumes  map[string]string `yaml:"volumes"`
	Files    []string          `yaml:"files"`
	Users    []User            `yaml:"users"`
	Members  []Member          `yaml:"members"`
	Books    []Book            `yaml:"books"`
}

// World is a fixture materialized into workflow collaborators.
type World struct {
	Store      *workflow.MemoryStore
	Users      *workflow.UserTable
	Members    *workflow.MemberRegistry
	Files      *workflow.FileSet
	DailyLimit workflow.Quantity
	Defaults   Defaults
	Books      []Book
}

// Default returns the embedded fixture.
func Default() (Fixture, error) {
	return Parse(defaultFixture)
}

// Load reads a fixture file, or the embedded default when path is empty.
func Load(path string) (Fixture, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("%w: %v", ErrReadFixture, err)
	}
	return Parse(data)
}

// Parse decodes a YAML fixture.
func Parse(data []byte) (Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return fixture, nil
}

// Build materializes the fixture. bcryptCost of zero uses the bcrypt default.
func (fixture Fixture) Build(bcryptCost int) (*World, error) {
	initial := make(map[workflow.ResourceID]workflow.Quantity)
	for _, section := range []struct {
		name   string
		values map[string]string
	}{
		{name: "stock", values: fixture.Stock},
		{name: "accounts", values: fixture.Accounts},
		{name: "volumes", values: fixture.Volumes},
	} {
		for rawID, rawQuantity := range section.values {
			id, quantity, err := parseCounter(rawID, rawQuantity)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidFixture, section.name, rawID, err)
			}
			if _, exists := initial[id]; exists {
				return nil, fmt.Errorf("%w: %s.%s: duplicate resource", ErrInvalidFixture, section.name, rawID)
			}
			initial[id] = quantity
		}
	}

	members := workflow.NewMemberRegistry()
	for _, member := range fixture.Members {
		memberID, err := workflow.NewResourceID(member.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: member: %v", ErrInvalidFixture, err)
		}
		limit, err := workflow.NewQuantityFromInt(member.BorrowLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: member %s: %v", ErrInvalidFixture, member.ID, err)
		}
		borrowed, err := workflow.NewQuantityFromInt(member.Borrowed)
		if err != nil {
			return nil, fmt.Errorf("%w: member %s: %v", ErrInvalidFixture, member.ID, err)
		}
		if err := members.Register(memberID, workflow.Membership{Active: member.Active, BorrowLimit: limit}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
		}
		if !borrowed.IsZero() {
			initial[workflow.BorrowedKey(memberID)] = borrowed
		}
	}

	users := workflow.NewUserTable(bcryptCost)
	for _, user := range fixture.Users {
		var err error
		switch {
		case user.PasswordHash != "":
			err = users.RegisterHash(user.Username, []byte(user.PasswordHash))
		default:
			err = users.Register(user.Username, user.Password)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: user %q: %v", ErrInvalidFixture, user.Username, err)
		}
	}

	dailyLimit, err := parseDailyLimit(fixture.Defaults.DailyLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: defaults.daily_limit: %v", ErrInvalidFixture, err)
	}

	return &World{
		Store:      workflow.NewMemoryStore(initial),
		Users:      users,
		Members:    members,
		Files:      workflow.NewFileSet(fixture.Files...),
		DailyLimit: dailyLimit,
		Defaults:   fixture.Defaults,
		Books:      append([]Book(nil), fixture.Books...),
	}, nil
}

// Flows builds every pipeline over the world's collaborators.
func (world *World) Flows() workflow.Flows {
	return workflow.NewFlows(workflow.FlowDependencies{
		Members:    world.Members,
		Users:      world.Users,
		Files:      world.Files,
		DailyLimit: world.DailyLimit,
	})
}

// parseDailyLimit requires a positive limit.
func parseDailyLimit(raw string) (workflow.Quantity, error) {
	if strings.TrimSpace(raw) == "" {
		return workflow.Quantity{}, errMissingDailyLimit
	}
	limit, err := workflow.ParseQuantity(raw)
	if err != nil {
		return workflow.Quantity{}, err
	}
	if limit.IsZero() {
		return workflow.Quantity{}, fmt.Errorf("%w: must be greater than zero", workflow.ErrInvalidQuantity)
	}
	return limit, nil
}

func parseCounter(rawID string, rawQuantity string) (workflow.ResourceID, workflow.Quantity, error) {
	id, err := workflow.NewResourceID(rawID)
	if err != nil {
		return workflow.ResourceID{}, workflow.Quantity{}, err
	}
	quantity, err := workflow.ParseQuantity(rawQuantity)
	if err != nil {
		return workflow.ResourceID{}, workflow.Quantity{}, err
	}
	return id, quantity, nil
}
