// Package sprintpatch brings back the classic hold-to-sprint behavior in a
// running Starfield process by patching the game's sprint button handler.
//
// The package works on raw addresses inside the host process. Nothing here
// owns the memory it touches: addresses come from the loaded host image and
// stay valid for as long as the process runs. All access goes through a
// Memory, which is either the live process (Self) or a Region standing in
// for it.
//
// Installation is one shot. A HostLayout describes where the hook site, the
// code cave and the player singleton live for one exact build of the host.
// An Installer plans every byte it is going to write, checks that each
// relative branch is reachable, and only then writes the bridge code and
// finally the hook branch. If anything fails nothing reachable has changed
// and the game keeps its original behavior.
//
// Limitations:
//   - Only supports x86-64
//   - Offsets are specific to a single build of the host executable
//   - There is no uninstall; the patch lives as long as the process
package sprintpatch
