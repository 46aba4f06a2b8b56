package journal

import "fmt"

const tableRequests = "requests"

// requestsTableSQL creates the journal table. The table survives reopening.
var requestsTableSQL = fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id            VARCHAR PRIMARY KEY,
	operation     VARCHAR NOT NULL,
	url           VARCHAR NOT NULL,
	api_timestamp BIGINT NOT NULL,
	code          VARCHAR NOT NULL,
	message       VARCHAR,
	duration_ms   BIGINT NOT NULL,
	created_at    TIMESTAMP NOT NULL
)`, tableRequests)

var requestsIndexesSQL = []string{
	fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s(created_at)", tableRequests, tableRequests),
	fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_code ON %s(code)", tableRequests, tableRequests),
}
