package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/deppfellow/candychain/internal/wallet"
)

const (
	rangeStartKey = "CANDY0"
	rangeEndKey   = "CANDY999"
)

var seedCandies = []Candy{
	{Name: "JollyRancher", Texture: "Hard Candy", Colour: "Multi", Owner: "A"},
	{Name: "Snickers", Texture: "Chewy", Colour: "Brown", Owner: "B"},
	{Name: "KitKat", Texture: "Crunchy", Colour: "Brown", Owner: "A"},
	{Name: "SourPatch", Texture: "Chewy", Colour: "Multi", Owner: "B"},
	{Name: "Kisses", Texture: "Creamy", Colour: "Brown", Owner: "A"},
	{Name: "Hersheys", Texture: "Creamy", Colour: "Brown", Owner: "A"},
	{Name: "DumDums", Texture: "Hard Candy", Colour: "Multi", Owner: "B"},
}

// MemoryGateway keeps the world state in a map. Every session shares it.
type MemoryGateway struct {
	mu    sync.RWMutex
	state map[string][]byte
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{state: make(map[string][]byte)}
}

func (g *MemoryGateway) Connect(_ context.Context, id *wallet.Identity) (Session, error) {
	if id == nil {
		return nil, errors.New("ledger session requires an identity")
	}
	return &memorySession{gw: g}, nil
}

func (g *MemoryGateway) Ping(context.Context) error { return nil }

func (g *MemoryGateway) Close() error { return nil }

// Evaluate runs a transaction against a snapshot; writes are discarded.
func (g *MemoryGateway) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tx := newStub(g.state)
	return tx.invoke(ctx, name, args)
}

// Submit runs a transaction and commits its writes.
func (g *MemoryGateway) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tx := newStub(g.state)
	result, err := tx.invoke(ctx, name, args)
	if err != nil {
		return nil, err
	}
	for key, value := range tx.writes {
		g.state[key] = value
	}
	return result, nil
}

type memorySession struct {
	gw *MemoryGateway
}

func (s *memorySession) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	return s.gw.Evaluate(ctx, name, args...)
}

func (s *memorySession) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	return s.gw.Submit(ctx, name, args...)
}

func (s *memorySession) Close() error { return nil }

// stub is a single transaction: reads see its own writes first.
type stub struct {
	committed map[string][]byte
	writes    map[string][]byte
}

func newStub(committed map[string][]byte) *stub {
	return &stub{committed: committed, writes: make(map[string][]byte)}
}

func (s *stub) get(key string) []byte {
	if value, ok := s.writes[key]; ok {
		return value
	}
	return s.committed[key]
}

func (s *stub) put(key string, value []byte) {
	s.writes[key] = value
}

// keysInRange returns the keys in [start, end) in lexical order, the
// way GetStateByRange iterates.
func (s *stub) keysInRange(start, end string) []string {
	seen := make(map[string]struct{}, len(s.committed)+len(s.writes))
	for key := range s.committed {
		seen[key] = struct{}{}
	}
	for key := range s.writes {
		seen[key] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		if key >= start && key < end {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *stub) invoke(ctx context.Context, name string, args []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch name {
	case FnQueryCandy:
		return s.queryCandy(args)
	case FnInitLedger:
		return s.initLedger()
	case FnCreateCandy:
		return s.createCandy(args)
	case FnQueryAllCandies:
		return s.queryAllCandies()
	case FnChangeCandyOwner:
		return s.changeCandyOwner(args)
	}
	return nil, errors.New("Invalid Smart Contract function name.")
}

func expectArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("Incorrect number of arguments. Expecting %d", n)
	}
	return nil
}

// queryCandy returns the stored bytes, empty when the key is absent.
func (s *stub) queryCandy(args []string) ([]byte, error) {
	if err := expectArgs(args, 1); err != nil {
		return nil, err
	}
	return s.get(args[0]), nil
}

func (s *stub) initLedger() ([]byte, error) {
	for i, candy := range seedCandies {
		data, err := json.Marshal(candy)
		if err != nil {
			return nil, err
		}
		s.put("CANDY"+strconv.Itoa(i), data)
	}
	return nil, nil
}

func (s *stub) createCandy(args []string) ([]byte, error) {
	if err := expectArgs(args, 5); err != nil {
		return nil, err
	}

	data, err := json.Marshal(Candy{Name: args[1], Texture: args[2], Colour: args[3], Owner: args[4]})
	if err != nil {
		return nil, err
	}
	s.put(args[0], data)
	return nil, nil
}

func (s *stub) queryAllCandies() ([]byte, error) {
	keys := s.keysInRange(rangeStartKey, rangeEndKey)

	results := make([]struct {
		Key    string          `json:"Key"`
		Record json.RawMessage `json:"Record"`
	}, len(keys))
	for i, key := range keys {
		results[i].Key = key
		results[i].Record = s.get(key)
	}
	return json.Marshal(results)
}

func (s *stub) changeCandyOwner(args []string) ([]byte, error) {
	if err := expectArgs(args, 2); err != nil {
		return nil, err
	}

	data := s.get(args[0])
	if len(data) == 0 {
		return nil, fmt.Errorf("%s does not exist", args[0])
	}

	var candy Candy
	if err := json.Unmarshal(data, &candy); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", args[0], err)
	}
	candy.Owner = args[1]

	data, err := json.Marshal(candy)
	if err != nil {
		return nil, err
	}
	s.put(args[0], data)
	return nil, nil
}
