// Package projects is the procedure layer: the operations a signed-in user
// performs on projects, questions and commits.
//
// Every operation requires a user identity on the context (see WithUser)
// and returns failures as *Error values carrying one of a small fixed set
// of codes and a message fit for display.
package projects
