// Package translate drives the generation service to turn one SQL Server
// procedure definition into one PostgreSQL artifact.
//
// Long definitions are split into line chunks. The first chunk carries the
// full rule set, later chunks a short continuation prompt, and only the last
// chunk's reply is checked for the closing clause. Replies are concatenated
// raw; fence stripping happens where the artifact is used.
package translate
