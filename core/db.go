package core

// DBOrdering describes a single ORDER BY term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

func Asc(field string) DBOrdering  { return DBOrdering{Field: field, Ascending: true} }
func Desc(field string) DBOrdering { return DBOrdering{Field: field} }
