// Package frame delivers camera frames to the scan session.
//
// Sources push encoded images into a Mailbox that keeps only the most recent
// undelivered frame: a slow consumer always sees the newest picture and older
// frames are counted as dropped. FFmpegSource captures from a V4L2 device
// through an ffmpeg MJPEG pipe; SpoolSource picks up image files dropped into a
// directory by another process.
package frame
