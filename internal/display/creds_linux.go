package display

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

func peerCredentials(conn net.Conn) (Credentials, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return Credentials{}, fmt.Errorf("not a unix socket: %T", conn)
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return Credentials{}, fmt.Errorf("peer syscall conn: %w", err)
	}
	var (
		creds   Credentials
		credErr error
	)
	if err := raw.Control(func(fd uintptr) {
		ucred, err := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
		if err != nil {
			credErr = err
			return
		}
		creds = Credentials{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}
	}); err != nil {
		return Credentials{}, fmt.Errorf("peer control: %w", err)
	}
	if credErr != nil {
		return Credentials{}, fmt.Errorf("peer credentials: %w", credErr)
	}
	return creds, nil
}
