package sqlinline

// Mark prefixes a query assembled at runtime with its audit marker so it can
// pass through infra.SQLRunner like the constant queries.
func Mark(marker, query string) string {
	return "--sql " + marker + "\n" + query
}
