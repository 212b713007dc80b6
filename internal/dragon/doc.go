// Package dragon builds, validates, persists, and executes Dragon script
// documents (.drs) for versions 6 and 7 of the Dragon descriptor-calculation
// program.  The package is pure orchestration: descriptor computation itself
// is delegated to the external dragonNshell binary, which consumes the XML
// script produced here verbatim.
//
// The Wizard type mirrors the Script Wizard of the Dragon GUI: it assembles
// the four mandatory sections (OPTIONS, DESCRIPTORS, MOLFILES, OUTPUT) plus
// the optional EXTERNAL section in the exact element order Dragon expects,
// with every leaf setting carried as a single "value" attribute and booleans
// rendered as the literal strings "true"/"false".
package dragon
