// Package storage loads previously exported Bluesky records from local files
// so they can be analysed offline.
//
// Three layouts are accepted:
//   - a JSON array of records
//   - a saved API response page, with the records under its items field
//   - JSON Lines, one record per line
//
// Entries that cannot be decoded are skipped and their indexes reported in
// Dataset.Malformed, so one bad record never hides the rest of the file.
//
// Usage:
//
//	ds, err := storage.LoadPosts("posts.json")
//	if err != nil {
//	    return err
//	}
//	table, diag := aggregate.Hashtags(ds.Items, opts)
package storage
