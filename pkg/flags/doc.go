// Package flags finds flag emoji in free text such as profile display names.
package flags
