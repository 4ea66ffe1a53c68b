// Package curriculum reads and writes the static study data: the component
// decomposition table, lists of target expressions and characters, review
// history exports from jpdb.io, and JLPT vocabulary lists.
//
// Nothing here talks to the flashcard store. Callers turn the parsed data
// into domain.Target values and hand them to the sync service.
package curriculum
