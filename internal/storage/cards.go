package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mfield/retain/internal/domain"
)

// ErrCardNotFound is returned when a card id has no backing row, e.g.
// after an in-memory queue went stale.
var ErrCardNotFound = errors.New("card not found")

const cardCols = "id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data"

// idList renders ids as a SQL "(1,2,3)" literal. Parameter slots can't
// hold a variable-length list; ids are int64s so this is injection-safe.
func idList(ids []int64) string {
	if len(ids) == 0 {
		return "(NULL)"
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte(')')
	return b.String()
}

func scanCard(row interface{ Scan(...any) error }) (*Card, error) {
	c := &Card{}
	err := row.Scan(
		&c.ID, &c.NID, &c.DID, &c.Ord, &c.Mod, &c.USN, &c.Type, &c.Queue,
		&c.Due, &c.Ivl, &c.Factor, &c.Reps, &c.Lapses, &c.Left,
		&c.ODue, &c.ODid, &c.Flags, &c.Data,
	)
	if err != nil {
		return nil, err
	}
	c.normalize()
	return c, nil
}

// GetCard materialises a card row, normalising legacy values.
func (db *DB) GetCard(id int64) (*Card, error) {
	row := db.q.QueryRow("SELECT "+cardCols+" FROM cards WHERE id = ?", id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	return c, nil
}

// CreateCard inserts a card row. Used by note creation, filtered-deck
// tests and fixtures; the scheduler itself only mutates existing rows.
func (db *DB) CreateCard(c *Card) error {
	res, err := db.q.Exec(
		"INSERT INTO cards ("+cardCols+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)",
		nullableID(c.ID), c.NID, c.DID, c.Ord, c.Mod, c.USN, c.Type, c.Queue,
		c.Due, c.Ivl, c.Factor, c.Reps, c.Lapses, c.Left,
		c.ODue, c.ODid, c.Flags, c.Data,
	)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	if c.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get card ID: %w", err)
		}
		c.ID = id
	}
	return nil
}

// nullableID lets SQLite assign rowids for zero-valued ids.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// FlushCard writes every scheduling field of a card back to its row.
func (db *DB) FlushCard(c *Card) error {
	_, err := db.q.Exec(`
		UPDATE cards SET
			nid = ?, did = ?, ord = ?, mod = ?, usn = ?, type = ?, queue = ?,
			due = ?, ivl = ?, factor = ?, reps = ?, lapses = ?, left = ?,
			odue = ?, odid = ?, flags = ?, data = ?
		WHERE id = ?`,
		c.NID, c.DID, c.Ord, c.Mod, c.USN, c.Type, c.Queue,
		c.Due, c.Ivl, c.Factor, c.Reps, c.Lapses, c.Left,
		c.ODue, c.ODid, c.Flags, c.Data, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to flush card %d: %w", c.ID, err)
	}
	return nil
}

func (db *DB) listIDs(query string, args ...any) ([]int64, error) {
	rows, err := db.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (db *DB) scalarInt(query string, args ...any) (int, error) {
	var n sql.NullInt64
	if err := db.q.QueryRow(query, args...).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return int(n.Int64), nil
}

// NewQueueIDs returns the new-queue card ids for one deck in position
// order. CramNew cards only exist inside filtered decks, so including
// both queues keeps one query serving regular and filtered fills.
func (db *DB) NewQueueIDs(did int64, limit int) ([]int64, error) {
	return db.listIDs(fmt.Sprintf(`
		SELECT id FROM cards
		WHERE did = ? AND queue IN (%d,%d)
		ORDER BY due, ord LIMIT ?`,
		domain.QueueNew, domain.QueueCramNew), did, limit)
}

// CountNewForDeck counts new cards in one deck, capped at limit.
func (db *DB) CountNewForDeck(did int64, limit int) (int, error) {
	return db.scalarInt(fmt.Sprintf(`
		SELECT count() FROM (SELECT 1 FROM cards
		WHERE did = ? AND queue IN (%d,%d) LIMIT ?)`,
		domain.QueueNew, domain.QueueCramNew), did, limit)
}

// LearnDueEntries returns (due, id) pairs of sub-day learning cards due
// before cutoff across the given decks.
func (db *DB) LearnDueEntries(dids []int64, cutoff int64, limit int) ([]LearnDue, error) {
	rows, err := db.q.Query(fmt.Sprintf(`
		SELECT due, id FROM cards
		WHERE did IN %s AND queue = %d AND due < ?
		LIMIT ?`, idList(dids), domain.QueueLearning), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LearnDue
	for rows.Next() {
		var e LearnDue
		if err := rows.Scan(&e.Due, &e.ID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SumLearnStepsDue totals the remaining today-steps of sub-day learning
// cards due before cutoff.
func (db *DB) SumLearnStepsDue(dids []int64, cutoff int64, limit int) (int, error) {
	return db.scalarInt(fmt.Sprintf(`
		SELECT sum(left/1000) FROM (SELECT left FROM cards
		WHERE did IN %s AND queue = %d AND due < ? LIMIT ?)`,
		idList(dids), domain.QueueLearning), cutoff, limit)
}

// CountDayLearn counts day-learning cards due by today.
func (db *DB) CountDayLearn(dids []int64, today int64, limit int) (int, error) {
	return db.scalarInt(fmt.Sprintf(`
		SELECT count() FROM (SELECT 1 FROM cards
		WHERE did IN %s AND queue = %d AND due <= ? LIMIT ?)`,
		idList(dids), domain.QueueDayLearning), today, limit)
}

// DayLearnIDs returns day-learning card ids due by today for one deck.
func (db *DB) DayLearnIDs(did int64, today int64, limit int) ([]int64, error) {
	return db.listIDs(fmt.Sprintf(`
		SELECT id FROM cards
		WHERE did = ? AND queue = %d AND due <= ?
		LIMIT ?`, domain.QueueDayLearning), did, today, limit)
}

// RevIDs returns due review card ids for one deck in stored due order.
func (db *DB) RevIDs(did int64, today int64, limit int) ([]int64, error) {
	return db.listIDs(fmt.Sprintf(`
		SELECT id FROM cards
		WHERE did = ? AND queue = %d AND due <= ?
		ORDER BY due LIMIT ?`, domain.QueueReview), did, today, limit)
}

// CountRevForDeck counts due reviews in one deck, capped at limit.
func (db *DB) CountRevForDeck(did int64, today int64, limit int) (int, error) {
	return db.scalarInt(fmt.Sprintf(`
		SELECT count() FROM (SELECT 1 FROM cards
		WHERE did = ? AND queue = %d AND due <= ? LIMIT ?)`,
		domain.QueueReview), did, today, limit)
}

// CountRevTotal counts due reviews across decks, capped at limit.
func (db *DB) CountRevTotal(dids []int64, today int64, limit int) (int, error) {
	return db.scalarInt(fmt.Sprintf(`
		SELECT count() FROM (SELECT 1 FROM cards
		WHERE did IN %s AND queue = %d AND due <= ? LIMIT ?)`,
		idList(dids), domain.QueueReview), today, limit)
}

// Siblings returns the other cards of a note that are candidates for
// sibling burying: new cards, and review cards already due.
func (db *DB) Siblings(nid, exceptID, today int64) ([]SiblingCard, error) {
	rows, err := db.q.Query(fmt.Sprintf(`
		SELECT id, queue FROM cards
		WHERE nid = ? AND id != ?
		AND (queue = %d OR (queue = %d AND due <= ?))`,
		domain.QueueNew, domain.QueueReview), nid, exceptID, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SiblingCard
	for rows.Next() {
		var s SiblingCard
		if err := rows.Scan(&s.ID, &s.Queue); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetQueue moves the given cards to a queue.
func (db *DB) SetQueue(ids []int64, queue domain.CardQueue, mod int64, usn int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.q.Exec(
		"UPDATE cards SET queue = ?, mod = ?, usn = ? WHERE id IN "+idList(ids),
		queue, mod, usn)
	if err != nil {
		return fmt.Errorf("failed to set queue: %w", err)
	}
	return nil
}

// UnburyAll flips every card in the given buried queue back to its type.
func (db *DB) UnburyAll(queue domain.CardQueue, mod int64, usn int) error {
	_, err := db.q.Exec(
		"UPDATE cards SET queue = type, mod = ?, usn = ? WHERE queue = ?",
		mod, usn, queue)
	if err != nil {
		return fmt.Errorf("failed to unbury: %w", err)
	}
	return nil
}

// UnburyForDecks flips buried cards back to their type within decks.
func (db *DB) UnburyForDecks(queue domain.CardQueue, dids []int64, mod int64, usn int) error {
	_, err := db.q.Exec(
		"UPDATE cards SET queue = type, mod = ?, usn = ? WHERE queue = ? AND did IN "+idList(dids),
		mod, usn, queue)
	if err != nil {
		return fmt.Errorf("failed to unbury for decks: %w", err)
	}
	return nil
}

// Unsuspend flips suspended cards back to their type.
func (db *DB) Unsuspend(ids []int64, mod int64, usn int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.q.Exec(fmt.Sprintf(
		"UPDATE cards SET queue = type, mod = ?, usn = ? WHERE queue = %d AND id IN %s",
		domain.QueueSuspended, idList(ids)), mod, usn)
	if err != nil {
		return fmt.Errorf("failed to unsuspend: %w", err)
	}
	return nil
}

// HaveBuried reports whether any card in the decks is buried.
func (db *DB) HaveBuried(dids []int64) (bool, error) {
	n, err := db.scalarInt(fmt.Sprintf(`
		SELECT count() FROM (SELECT 1 FROM cards
		WHERE queue IN (%d,%d) AND did IN %s LIMIT 1)`,
		domain.QueueUserBuried, domain.QueueSchedBuried, idList(dids)))
	return n > 0, err
}

// restoreRelearning sends review cards that are mid-relearning back to
// the review queue at their saved due date.
func (db *DB) restoreRelearning(where string, mod int64, usn int) error {
	_, err := db.q.Exec(fmt.Sprintf(`
		UPDATE cards SET
			due = odue, queue = %d, mod = ?, usn = ?, odue = 0
		WHERE queue IN (%d,%d) AND type = %d %s`,
		domain.QueueReview,
		domain.QueueLearning, domain.QueueDayLearning, domain.TypeReview, where),
		mod, usn)
	return err
}

// RemoveFromLearning takes cards out of the learning queues: relearning
// review cards go back to the review queue at their original due, and
// new cards in learning are forgotten. Pass nil to cover every deck.
func (db *DB) RemoveFromLearning(ids []int64, dids []int64, startPos int64, mod int64, usn int) error {
	var where string
	switch {
	case len(ids) > 0:
		where = " AND id IN " + idList(ids)
	case len(dids) > 0:
		where = " AND did IN " + idList(dids)
	}
	if err := db.restoreRelearning(where, mod, usn); err != nil {
		return fmt.Errorf("failed to restore relearning cards: %w", err)
	}
	newIDs, err := db.listIDs(fmt.Sprintf(
		"SELECT id FROM cards WHERE queue IN (%d,%d)%s",
		domain.QueueLearning, domain.QueueDayLearning, where))
	if err != nil {
		return fmt.Errorf("failed to list learning cards: %w", err)
	}
	return db.ForgetCards(newIDs, startPos, mod, usn)
}

// ForgetCards resets cards to new at the end of the new queue.
func (db *DB) ForgetCards(ids []int64, startPos int64, mod int64, usn int) error {
	if len(ids) == 0 {
		return nil
	}
	for i, id := range ids {
		_, err := db.q.Exec(fmt.Sprintf(`
			UPDATE cards SET
				type = %d, queue = %d, ivl = 0, due = ?, odue = 0,
				factor = ?, left = 0, mod = ?, usn = ?
			WHERE id = ?`, domain.TypeNew, domain.QueueNew),
			startPos+int64(i), 2500, mod, usn, id)
		if err != nil {
			return fmt.Errorf("failed to forget card %d: %w", id, err)
		}
	}
	return nil
}

// RestoreDynCards moves cards back out of a filtered deck, restoring
// their home deck and due. Learning cards revert to new.
func (db *DB) RestoreDynCards(ids []int64, usn int) error {
	if len(ids) == 0 {
		return nil
	}
	return db.emptyDynWhere("id IN "+idList(ids)+" AND odid != 0", usn)
}

// EmptyDynDeck moves every card of a filtered deck back home.
func (db *DB) EmptyDynDeck(did int64, usn int) error {
	return db.emptyDynWhere(fmt.Sprintf("did = %d", did), usn)
}

func (db *DB) emptyDynWhere(where string, usn int) error {
	_, err := db.q.Exec(fmt.Sprintf(`
		UPDATE cards SET
			did = odid,
			queue = (CASE WHEN type = %d THEN %d ELSE type END),
			type = (CASE WHEN type = %d THEN %d ELSE type END),
			due = odue, odue = 0, odid = 0, usn = ?
		WHERE %s`,
		domain.TypeLearning, domain.QueueCramNew,
		domain.TypeLearning, domain.TypeNew, where), usn)
	if err != nil {
		return fmt.Errorf("failed to empty filtered deck: %w", err)
	}
	return nil
}

// MoveToDyn relocates cards into a filtered deck. Due review cards stay
// in the review queue; everything else becomes cram-new. Cram dues
// start at -100000 so relocated cards all sort as due.
func (db *DB) MoveToDyn(did int64, ids []int64, today int64, usn int) error {
	queueCase := fmt.Sprintf(`
		(CASE WHEN type = %d AND (CASE WHEN odue != 0 THEN odue <= %d ELSE due <= %d END)
		 THEN %d ELSE %d END)`,
		domain.TypeReview, today, today, domain.QueueReview, domain.QueueCramNew)
	for i, id := range ids {
		_, err := db.q.Exec(fmt.Sprintf(`
			UPDATE cards SET
				odid = (CASE WHEN odid != 0 THEN odid ELSE did END),
				odue = (CASE WHEN odue != 0 THEN odue ELSE due END),
				did = ?, queue = %s, due = ?, usn = ?
			WHERE id = ?`, queueCase),
			did, -100000+int64(i), usn, id)
		if err != nil {
			return fmt.Errorf("failed to move card %d into filtered deck: %w", id, err)
		}
	}
	return nil
}

// DynFilter is the storage-level form of a filtered deck's search term.
type DynFilter struct {
	DeckIDs []int64 // nil means every deck
	DueOnly bool
	Tag     string
	Order   domain.DynOrder
	Limit   int
	Today   int64
}

func dynOrderSQL(o domain.DynOrder) string {
	switch o {
	case domain.DynOldest:
		return "(SELECT max(id) FROM revlog WHERE cid = cards.id)"
	case domain.DynRandom:
		return "random()"
	case domain.DynSmallIvl:
		return "ivl"
	case domain.DynBigIvl:
		return "ivl DESC"
	case domain.DynLapses:
		return "lapses DESC"
	case domain.DynAdded:
		return "id"
	case domain.DynDue:
		return "due"
	default:
		return "id"
	}
}

// DynCandidateIDs selects the cards a filtered-deck term matches:
// never suspended, buried, already filtered, or in a learning queue.
func (db *DB) DynCandidateIDs(f DynFilter) ([]int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `
		SELECT id FROM cards
		WHERE queue NOT IN (%d,%d,%d,%d,%d) AND odid = 0`,
		domain.QueueSuspended, domain.QueueUserBuried, domain.QueueSchedBuried,
		domain.QueueLearning, domain.QueueDayLearning)
	var args []any
	if f.DeckIDs != nil {
		fmt.Fprintf(&b, " AND did IN %s", idList(f.DeckIDs))
	}
	if f.DueOnly {
		fmt.Fprintf(&b, " AND queue = %d AND due <= ?", domain.QueueReview)
		args = append(args, f.Today)
	}
	if f.Tag != "" {
		b.WriteString(" AND nid IN (SELECT id FROM notes WHERE tags LIKE ?)")
		args = append(args, "% "+f.Tag+" %")
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT ?", dynOrderSQL(f.Order))
	args = append(args, f.Limit)
	return db.listIDs(b.String(), args...)
}

// CardIDsInDeck lists every card currently in a deck.
func (db *DB) CardIDsInDeck(did int64) ([]int64, error) {
	return db.listIDs("SELECT id FROM cards WHERE did = ?", did)
}
