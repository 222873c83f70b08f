// Package models defines the core domain models for tripsettle.
//
// # Models
//
//   - Travel: a shared trip with a base currency and a membership list
//   - Member: one participant of a Travel
//   - Expense: a shared cost paid by one member and split across participants
//   - Balance: a member's derived net position (never stored)
//   - Settlement: a transfer between two members, either recommended
//     (computed per request) or saved (persisted with a lifecycle)
//
// # Design Principles
//
//  1. **Derived state stays derived**: balances and recommended settlements
//     are recomputed from the expense ledger on every read
//  2. **Money is decimal**: amounts use shopspring/decimal rounded to two places
//  3. **Avoid circular references**: relationships are ID strings, not pointers
package models
