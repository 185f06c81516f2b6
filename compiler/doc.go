/*

Process of lowering

Fixture Text (yaml) ->
	load ->
Intermediate Representation (ir) ->
	verify ->
	def-use (df) ->
	select (back) ->
Machine Instructions (asm/arm64) ->
	text ->
Assembly Text

Functions are independent and are lowered concurrently.

*/
package compiler
