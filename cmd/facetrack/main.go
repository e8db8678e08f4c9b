// facetrack: smooths sensor face orientation into an on-screen position
// and serves it over HTTP and websockets.
package main

func main() {
	Execute()
}
