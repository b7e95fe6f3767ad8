package schema

// testSchema builds the {id int64, name varchar, score optional int32}
// schema shared by this package's tests.
func testSchema() *TupleSchema {
	return NewTupleSchema([]Column{
		{Name: "id", Type: ColumnInt64},
		{Name: "name", Type: ColumnVarchar},
		{Name: "score", Type: ColumnInt32, Nullable: true},
	})
}
