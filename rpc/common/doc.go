// Package common provides the data structures shared by the communication
// layer of dReshard: the Message envelope exchanged by collective operations,
// the world and reshape configuration structs, and the custom logger that is
// plugged into dragonboat's logger package.
//
// Key Components:
//
//   - Message: envelope for every point-to-point payload. The MsgType names the
//     collective that produced it, so a rank that receives a message of the wrong
//     type knows the collective call sequence has diverged.
//
//   - WorldConfig: how a process joins the world (transport, serializer, rank,
//     endpoints, socket settings, timeouts).
//
//   - ReshapeConfig: input/output directories and the read/write strategies.
//
//   - Logger: dragonboat ILogger implementation with a uniform line format.
package common
