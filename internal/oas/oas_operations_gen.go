// Code generated by ogen, DO NOT EDIT.

package oas

// OperationName is the ogen operation name
type OperationName = string

const (
	CreateKeyOperation OperationName = "CreateKey"
	ListKeysOperation  OperationName = "ListKeys"
	RevokeKeyOperation OperationName = "RevokeKey"
)
