// Package cmd defines the movierank CLI.
//
//	movierank scrape   fetch the top chart, reference data and every detail
//	                   page (through cache.json), then rebuild the database
//	movierank serve    serve the HTML/JSON reports over the database
//	movierank top      print the top 20 report as a table
//	movierank runs     print recent scrape runs
//
// Every command reads the same configuration: --config, MOVIERANK_* env vars
// and defaults, in that order of precedence after flags.
package cmd
