/*
Package session implements session management and persistence orchestration.

It serializes the turns of a booking session, integrating in-process locks with
optional distributed locking and the state store adapters.
*/
package session
