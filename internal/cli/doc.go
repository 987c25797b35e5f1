// Package cli implements the command-line interface for cfp-search.
//
// The root command loads configuration through viper and installs the
// structured logger. The search subcommand prints the result envelope as
// JSON, an aligned text table or an iCalendar file of submission deadlines,
// optionally sorted by deadline or name. The serve subcommand exposes the
// same search as an HTTP tool endpoint.
package cli
