// Package logx is a thin structured-logging facade over zerolog.
//
// Components hold a Logger value; the zero value is a safe no-op.
// The Service owns the sinks (console, file) and can swap level and
// outputs at runtime via Apply without invalidating held Loggers.
package logx
