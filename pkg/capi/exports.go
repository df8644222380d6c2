// Package main provides C-compatible functions for building a shared library.
// Build with: go build -buildmode=c-shared -o libbgtutor.so ./pkg/capi
package main

/*
#include <stdlib.h>
#include <stdint.h>
*/
import "C"
import (
	"unsafe"
)

//export bgtutor_version
func bgtutor_version() *C.char {
	return C.CString(version)
}

//export bgtutor_last_error
func bgtutor_last_error() *C.char {
	msg := getError()
	if msg == "" {
		return nil
	}
	return C.CString(msg)
}

// bgtutor_init loads a gnubg XML match equity table. NULL keeps the
// built-in table.
//
//export bgtutor_init
func bgtutor_init(metFile *C.char) C.int {
	file := ""
	if metFile != nil {
		file = C.GoString(metFile)
	}
	if err := loadTable(file); err != nil {
		setError(err)
		return -1
	}
	setError(nil)
	return 0
}

//export bgtutor_legal_plays
func bgtutor_legal_plays(positionID *C.char, turn, die1, die2 C.int, resultJSON **C.char) C.int {
	plays, err := legalPlays(C.GoString(positionID), int(turn), int(die1), int(die2))
	return result(plays, err, resultJSON)
}

//export bgtutor_pip_count
func bgtutor_pip_count(positionID *C.char, resultJSON **C.char) C.int {
	pips, err := pipCounts(C.GoString(positionID))
	return result(pips, err, resultJSON)
}

//export bgtutor_match_equity
func bgtutor_match_equity(awayWhite, awayBlack C.int) C.double {
	return C.double(matchEquity(int(awayWhite), int(awayBlack)))
}

//export bgtutor_free_string
func bgtutor_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func result(v any, err error, resultJSON **C.char) C.int {
	s, err := marshal(v, err)
	*resultJSON = C.CString(s)
	setError(err)
	if err != nil {
		return -1
	}
	return 0
}
