// Package protocol defines the A2A wire data model: messages, typed content,
// conversations, tasks, and agent descriptors. Every entity supports two wire
// dialects — a native dialect and a "Google A2A" compat dialect. Message and
// Part can be converted explicitly (ToGoogleA2A, MessageFromGoogleA2A,
// PartFromGoogleA2A) and tasks decoded explicitly (TaskFromGoogleA2A,
// TaskFromNativeDict); otherwise the
// dialect follows the process-wide compat flag toggled by SetGoogleA2ACompat.
//
// Field names use camelCase JSON tags in the compat dialect and snake_case
// in the native dialect, matching the two real-world A2A wire shapes this
// runtime has to interoperate with.
package protocol
