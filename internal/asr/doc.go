// Package asr ingests finished speech-recognition transcripts from a watched
// output directory and turns each one into a system-owned analysis task.
//
// An upstream ASR process drops a completion marker named
// <timestamp>_<stream>.json next to the audio it transcribed. The Watcher
// polls the directory, deduplicates markers through a bounded Ledger and
// submits every new transcript to the task registry, where it flows through
// the same queue and workers as client submissions.
package asr
