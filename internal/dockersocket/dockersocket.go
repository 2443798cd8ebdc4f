// Package dockersocket verifies the daemon socket is reachable before the
// orchestrator accepts deploy requests that will eventually shell out to
// docker compose / docker exec.
package dockersocket

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"
)

const (
	socketNetwork = "unix"
	socketAddress = "/var/run/docker.sock"
)

var ErrDockerSocketConnectionFailed = errors.New("failed to connect to docker socket")

// ConnectToSocket connects to the docker socket.
func ConnectToSocket() (net.Conn, error) {
	c, err := net.Dial(socketNetwork, socketAddress)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func GetSocketGroupOwner() (string, error) {
	fi, err := os.Stat(socketAddress)
	if err != nil {
		return "", err
	}

	return strconv.Itoa(int(fi.Sys().(*syscall.Stat_t).Gid)), nil
}

// VerifyConnection verifies whether the application can connect to the
// docker socket, returning the required group id in the error when the
// failure is a permission problem.
func VerifyConnection() error {
	if _, err := os.Stat(socketAddress); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrDockerSocketConnectionFailed, err)
	}

	c, err := ConnectToSocket()
	if errors.Is(err, os.ErrPermission) {
		gid, gidErr := GetSocketGroupOwner()
		if gidErr != nil {
			return fmt.Errorf("%w: %w", ErrDockerSocketConnectionFailed, gidErr)
		}

		return fmt.Errorf("%w: current user needs group id %s", ErrDockerSocketConnectionFailed, gid)
	} else if err != nil {
		return fmt.Errorf("%w: %w", ErrDockerSocketConnectionFailed, err)
	}

	return c.Close()
}
