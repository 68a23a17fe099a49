package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/atas-platform/atas/domain/repository"
)

// ApplyOptions builds a repository.Query from options and applies it to a GORM session.
func ApplyOptions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	q := repository.Build(options...)

	db = applyFilters(db, q)

	for _, ord := range q.Orders() {
		dir := "ASC"
		if !ord.Ascending() {
			dir = "DESC"
		}
		db = db.Order(fmt.Sprintf("%s %s", ord.Field(), dir))
	}

	if q.LimitValue() > 0 {
		db = db.Limit(q.LimitValue())
	}
	if q.OffsetValue() > 0 {
		db = db.Offset(q.OffsetValue())
	}
	return db
}

// ApplyConditions applies only WHERE clauses (no limit/offset/order) for COUNT queries.
func ApplyConditions(db *gorm.DB, options ...repository.Option) *gorm.DB {
	return applyFilters(db, repository.Build(options...))
}

func applyFilters(db *gorm.DB, q repository.Query) *gorm.DB {
	for _, cond := range q.Conditions() {
		if cond.In() {
			db = db.Where(fmt.Sprintf("%s IN ?", cond.Field()), cond.Value())
		} else {
			db = db.Where(fmt.Sprintf("%s = ?", cond.Field()), cond.Value())
		}
	}

	// LOWER(..) LIKE LOWER(..) behaves the same on SQLite and PostgreSQL.
	for _, m := range q.Matches() {
		fields := m.Fields()
		clauses := make([]string, len(fields))
		args := make([]any, len(fields))
		pattern := "%" + escapeLike(strings.ToLower(m.Term())) + "%"
		for i, f := range fields {
			clauses[i] = fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", f)
			args[i] = pattern
		}
		db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	return db
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
