// Package sv implements a minimal SystemVerilog front end used in place of a
// real compiler library: a lexer, a declaration-oriented recursive-descent
// parser, and a flat symbol table.
//
// The package intentionally stops short of elaboration. A Compilation can
// add syntax trees and report their top-level definitions and package
// exports, but it has no method that walks into instances, resolves
// generate conditions, or evaluates parameter values — that boundary is
// what lets a preamble (merged project-wide declarations) and an overlay
// (one file's elaborated view) built on top of the same Compilation type
// stay genuinely distinct, rather than one silently doing the other's job.
package sv
