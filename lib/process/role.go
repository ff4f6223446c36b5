// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables through which a lockdown binary tells a
// re-executed copy of itself what to be.
const (
	RoleEnv   = "LOCKDOWN_ROLE"
	WorkerEnv = "LOCKDOWN_WORKER"
)

// Role is the part a lockdown process plays.
type Role string

const (
	RoleMaster Role = "master"
	RoleWorker Role = "worker"
	RoleRelay  Role = "relay"
)

// DetectRole reads the role from the environment. An unset variable
// means master: that is how an operator starts the binary.
func DetectRole() (Role, error) {
	value := os.Getenv(RoleEnv)
	switch Role(value) {
	case "", RoleMaster:
		return RoleMaster, nil
	case RoleWorker, RoleRelay:
		return Role(value), nil
	default:
		return "", fmt.Errorf("%s=%q: unknown role", RoleEnv, value)
	}
}

// WorkerNumber reads a worker's number from the environment.
func WorkerNumber() (int, error) {
	value := os.Getenv(WorkerEnv)
	nr, err := strconv.Atoi(value)
	if err != nil || nr < 0 {
		return 0, fmt.Errorf("%s=%q: not a worker number", WorkerEnv, value)
	}
	return nr, nil
}

// RoleEnviron returns env with the role variables replaced.
// worker < 0 drops the worker number.
func RoleEnviron(env []string, role Role, worker int) []string {
	result := make([]string, 0, len(env)+2)
	for _, entry := range env {
		if hasKey(entry, RoleEnv) || hasKey(entry, WorkerEnv) {
			continue
		}
		result = append(result, entry)
	}
	result = append(result, RoleEnv+"="+string(role))
	if worker >= 0 {
		result = append(result, WorkerEnv+"="+strconv.Itoa(worker))
	}
	return result
}

func hasKey(entry, key string) bool {
	return len(entry) > len(key) && entry[len(key)] == '=' && entry[:len(key)] == key
}
