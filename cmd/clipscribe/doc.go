// Command clipscribe downloads short videos from a URL list, transcribes
// their audio, and exports the results as CSV, JSON, and SRT files.
package main
