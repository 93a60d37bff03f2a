// Package ytdlp wraps the yt-dlp command line tool for fetching TikTok
// videos and their metadata. Failures are classified into the services
// error taxonomy from yt-dlp's stderr, so the download stage only sees
// retriable versus permanent.
package ytdlp
