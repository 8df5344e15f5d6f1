package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"hashmelody/native/metadata"
)

// GenesisSpec describes the initial ledger: the platform registry, funded
// native accounts and the tokens created before the node starts serving.
type GenesisSpec struct {
	Platform PlatformSpec      `yaml:"platform"`
	Alloc    map[string]string `yaml:"alloc"` // addr -> native amount
	Tokens   []TokenSpec       `yaml:"tokens"`

	platform platformAddrs
	alloc    []allocation
	tokens   []tokenEntry
}

type PlatformSpec struct {
	Admin           string `yaml:"admin"`
	Treasury        string `yaml:"treasury"`
	OracleAuthority string `yaml:"oracleAuthority"`
}

type TokenSpec struct {
	Token            string `yaml:"token"`
	Creator          string `yaml:"creator"`
	CollectionWallet string `yaml:"collectionWallet"`
	MetadataID       uint64 `yaml:"metadataId"`
	Name             string `yaml:"name"`
	URI              string `yaml:"uri"`
	// Views seeds the oracle with an initial cumulative view count.
	Views uint64 `yaml:"views,omitempty"`
}

type platformAddrs struct {
	admin, treasury, oracle [20]byte
}

type allocation struct {
	account [20]byte
	amount  uint64
}

type tokenEntry struct {
	token, creator, wallet [20]byte
	spec                   TokenSpec
}

// LoadGenesisSpec reads and validates the YAML genesis file at path.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a YAML document. Unknown fields are
// rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) validate() error {
	var err error
	if s.platform.admin, err = ParseBech32Account(s.Platform.Admin); err != nil {
		return fmt.Errorf("platform.admin: %w", err)
	}
	if s.platform.treasury, err = ParseBech32Account(s.Platform.Treasury); err != nil {
		return fmt.Errorf("platform.treasury: %w", err)
	}
	if s.platform.oracle, err = ParseBech32Account(s.Platform.OracleAuthority); err != nil {
		return fmt.Errorf("platform.oracleAuthority: %w", err)
	}

	// alloc
	accounts := make([]string, 0, len(s.Alloc))
	for account := range s.Alloc {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	s.alloc = s.alloc[:0]
	seen := make(map[[20]byte]struct{}, len(accounts))
	for _, account := range accounts {
		addr, err := ParseBech32Account(account)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", account, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("alloc[%q]: duplicate account", account)
		}
		seen[addr] = struct{}{}
		amount, err := strconv.ParseUint(strings.TrimSpace(s.Alloc[account]), 10, 64)
		if err != nil {
			return fmt.Errorf("alloc[%q]: invalid amount %q", account, s.Alloc[account])
		}
		if amount == 0 {
			continue
		}
		s.alloc = append(s.alloc, allocation{account: addr, amount: amount})
	}

	// tokens, in declaration order
	s.tokens = s.tokens[:0]
	tokens := make(map[[20]byte]struct{}, len(s.Tokens))
	for i := range s.Tokens {
		t := s.Tokens[i]
		var entry tokenEntry
		if entry.token, err = ParseBech32Token(t.Token); err != nil {
			return fmt.Errorf("tokens[%d].token: %w", i, err)
		}
		if _, dup := tokens[entry.token]; dup {
			return fmt.Errorf("tokens[%d]: duplicate token %q", i, t.Token)
		}
		tokens[entry.token] = struct{}{}
		if entry.creator, err = ParseBech32Account(t.Creator); err != nil {
			return fmt.Errorf("tokens[%d].creator: %w", i, err)
		}
		if entry.wallet, err = ParseBech32Account(t.CollectionWallet); err != nil {
			return fmt.Errorf("tokens[%d].collectionWallet: %w", i, err)
		}
		if err := metadata.Validate(t.Name, t.URI); err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		entry.spec = t
		s.tokens = append(s.tokens, entry)
	}
	return nil
}
