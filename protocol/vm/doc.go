/*
Package vm implements the 16-bit register machine that underlies script
verification.

A VM instance is created per job and discarded after use. It owns a
single Memory and two Threads, T0 (the output script's thread) and T1
(the input script's thread). Run drives the two-phase schedule
implemented in vm.go: T0 executes alone for up to MAX_INIT_TICKS
ticks; if it is not done by then, the input script is loaded and T0/T1
are stepped in lockstep, T0 first, for up to MAX_TICKS further global
ticks.

Every 16-bit word is a legal instruction (decode.go); there is no
decode fault, no alignment fault, and no memory fault, since addresses
wrap. The only way a script fails is by reaching irq failure or by
exhausting its tick budget. This package accordingly has no error
type: Run always returns a verdict, never an error.
*/
package vm
