package translate

import (
	"fmt"
	"strings"

	"github.com/roach88/procmigrate/internal/sqltext"
)

const translateSystemPrompt = "You are a helpful assistant that converts SQL code."

const correctSystemPrompt = "You are an assistant specializing in making SQL code compatible with PostgreSQL."

// conversionRules is sent once per procedure, with the first chunk.
const conversionRules = `Follow these rules:
1. Replace #temporary tables with CREATE TEMP TABLE; PostgreSQL has no # prefix.
2. Use TRUE and FALSE for boolean values instead of 1 and 0.
3. Use DELETE FROM instead of TRUNCATE TABLE on temporary tables to avoid lock contention.
4. Drop the dbo schema prefix or replace it with public.
5. Map BEGIN TRANSACTION, COMMIT and ROLLBACK to BEGIN, COMMIT and ROLLBACK.
6. Replace TRY...CATCH blocks with BEGIN ... EXCEPTION blocks.
7. Replace OUTPUT parameters with RETURNS TABLE or RETURN QUERY.
8. Replace EXEC with CALL for procedures and call functions directly inside queries.
9. Map system catalog references such as sys.objects to PostgreSQL equivalents such as pg_catalog.pg_class.
10. Map RAISERROR and PRINT to RAISE with NOTICE, WARNING or EXCEPTION as appropriate.
11. Write joins explicitly (CROSS JOIN, JOIN ... ON) instead of comma-separated FROM lists.
12. Replace OUTER APPLY with LEFT JOIN LATERAL.
13. Map types: DATETIME to TIMESTAMP, UNIQUEIDENTIFIER to UUID, MONEY to NUMERIC(19,4), BIT to BOOLEAN.
14. Replace IDENTITY columns with SERIAL or BIGSERIAL.
15. Replace MERGE with INSERT ... ON CONFLICT.
16. Express table locking with the LOCK statement.
17. Keep indexes and constraints compatible with PostgreSQL index methods.
18. Rewrite WHILE loops as LOOP, FOR or WHILE constructs.
19. Finish with DROP TABLE IF EXISTS <table_name>; for every temporary table created.`

// ChunkPrompt builds the user prompt for c.
func ChunkPrompt(c Chunk, language string) string {
	var b strings.Builder
	if c.First() {
		fmt.Fprintf(&b, "Convert the following MSSQL stored procedure to PostgreSQL (part %d of %d):\n%s\n", c.Index+1, c.Total, c.Text())
		b.WriteString(conversionRules)
	} else {
		fmt.Fprintf(&b, "Continue converting the MSSQL stored procedure to PostgreSQL (part %d of %d):\n%s", c.Index+1, c.Total, c.Text())
	}
	if c.Last() {
		fmt.Fprintf(&b, "\nMake sure the code ends with %s and contains no additional comments.", sqltext.Closer(language))
	}
	return b.String()
}

// CorrectionPrompt builds the user prompt asking for a fix of sql given the
// error PostgreSQL reported for it.
func CorrectionPrompt(sql, errMessage string) string {
	return fmt.Sprintf("Executing the following SQL in PostgreSQL failed with the error: '%s'.\n"+
		"Correct the code so that it runs on PostgreSQL:\n\n%s\n\n"+
		"Replace any remaining Microsoft SQL Server operators and functions with their PostgreSQL equivalents. "+
		"Return only the corrected SQL code, without comments or extra symbols.", errMessage, sql)
}
