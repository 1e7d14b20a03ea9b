package directory

import "github.com/jackc/pgx/v5"

// IndexOp is one queued write against the principal search index: either a
// Set (word now present) or a Clear (word no longer present), keyed on
// (word, principal id).
type IndexOp struct {
	Set         bool
	Word        []byte
	PrincipalID uint32
}

// PgIndexBatch accumulates search-index writes as a pgx.Batch, so the
// caller sends every write for one principal mutation in a single round
// trip via (*pgxpool.Pool).SendBatch.
type PgIndexBatch struct {
	batch *pgx.Batch
	ops   []IndexOp
}

// NewPgIndexBatch returns an empty PgIndexBatch.
func NewPgIndexBatch() *PgIndexBatch {
	return &PgIndexBatch{batch: &pgx.Batch{}}
}

// Set queues an upsert of (word, principalID) into the index.
func (b *PgIndexBatch) Set(word []byte, principalID uint32) {
	b.batch.Queue(
		`INSERT INTO principal_index (word, principal_id) VALUES ($1, $2)
		 ON CONFLICT (word, principal_id) DO NOTHING`,
		word, principalID,
	)
	b.ops = append(b.ops, IndexOp{Set: true, Word: word, PrincipalID: principalID})
}

// Clear queues a removal of (word, principalID) from the index.
func (b *PgIndexBatch) Clear(word []byte, principalID uint32) {
	b.batch.Queue(
		`DELETE FROM principal_index WHERE word = $1 AND principal_id = $2`,
		word, principalID,
	)
	b.ops = append(b.ops, IndexOp{Set: false, Word: word, PrincipalID: principalID})
}

// Len returns the number of queued operations.
func (b *PgIndexBatch) Len() int { return len(b.ops) }

// Ops returns the queued operations, for tests and inspection.
func (b *PgIndexBatch) Ops() []IndexOp { return b.ops }

// Underlying returns the pgx.Batch ready to send via
// (*pgxpool.Pool).SendBatch.
func (b *PgIndexBatch) Underlying() *pgx.Batch { return b.batch }

// wordSet tokenizes a principal's indexed text (name, description, each
// email) into the set of distinct words it contains. A nil principal
// contributes no words.
func wordSet(p *Principal) map[string]struct{} {
	set := make(map[string]struct{})
	if p == nil {
		return set
	}

	add := func(s string) {
		for _, tok := range Tokenize(s) {
			set[tok] = struct{}{}
		}
	}

	add(p.Name)
	if p.Description != nil {
		add(*p.Description)
	}
	for _, e := range p.Emails {
		add(e)
	}

	return set
}

// BuildSearchIndex computes the symmetric difference between previous and
// next's tokenized word sets and returns the batch of index writes needed
// to bring the index up to date: a Set for every word only in next, a
// Clear for every word only in previous. Unchanged words produce no I/O.
// previous and next may each be nil; at least one must be non-nil so a
// principal id is available.
func BuildSearchIndex(previous, next *Principal) *PgIndexBatch {
	batch := NewPgIndexBatch()

	var principalID uint32
	switch {
	case next != nil:
		principalID = next.ID
	case previous != nil:
		principalID = previous.ID
	default:
		return batch
	}

	oldWords := wordSet(previous)
	newWords := wordSet(next)

	for w := range newWords {
		if _, ok := oldWords[w]; !ok {
			batch.Set([]byte(w), principalID)
		}
	}
	for w := range oldWords {
		if _, ok := newWords[w]; !ok {
			batch.Clear([]byte(w), principalID)
		}
	}

	return batch
}
