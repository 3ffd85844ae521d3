package logging

// DebugEnable is a string passed in by the compiler to control the build's
// inclusion of Debuggable sections.
var DebugEnable string

// Debuggable means the build should include extra diagnostic logic, such as
// dumping raw graph responses and IPC payloads. The compiler *should* erase
// anything that's otherwise in a conditional.
var Debuggable = DebugEnable != ""
