// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package park provides address-style wait/notify for lock-free protocols.
//
// A Point is a parking spot attached to one protocol word. A caller that has
// observed a value it cannot make progress on calls Wait with a predicate
// reporting whether the word is still unchanged; the call parks until another
// party calls Notify or NotifyAll on the same Point. Spurious returns are
// allowed — callers always re-check their condition in a loop, exactly as
// with futex(2) or C++ atomic wait.
//
// On Linux each Point carries a 32-bit wake sequence. A waiter snapshots
// the sequence, re-checks the predicate, and only then parks on the sequence
// word. A notifier bumps the sequence before waking, so a notification that
// lands between the re-check and the park turns the park into an immediate
// return instead of a lost wakeup.
//
// On Linux parking goes straight to futex(2). Elsewhere a sync.Cond stands
// in and there is no wake sequence: the predicate is re-checked under the
// mutex, which notifiers also take. The mutex is taken only on this slow
// path — the caller's lock-free fast path has already failed by the time
// Wait is entered.
package park
