// Package domain contains the status page records shared by all modules.
package domain
