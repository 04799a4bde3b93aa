/*
Package tagtree implements tag trees: typed, nested, named values with a
compact big-endian binary encoding, as used by block-game save files, plus
persistence of such trees in files and databases.

We implement:

1. Values. Twelve payload kinds (integers of 1, 2, 4 and 8 bytes, two float
kinds, strings, byte/int/long arrays, lists and compounds), and Raw for
extension kinds carried through without interpretation.

2. The codec: Marshal, Unmarshal, Encode and Decode, with optional gzip or
zlib compression chosen by the caller.

3. Files: a root compound bound to a Storage (a plain file, a memory-mapped
file, a Bolt record, or memory), with atomic Save and Reload.

4. Adapters (package adapter) that project live host objects to and from
compounds, selected by host version.

# Technical Details

**Ownership.**
A list or compound belongs to at most one parent: a list, a compound or a
File. Inserting a value that already has a parent fails with ErrAlreadyOwned,
which also rules out cycles. Removing a value detaches it. Use Clone to copy
a subtree into another place.

**Ordering.**
Compound entries keep insertion order, and encoding follows it, so the same
tree always encodes to the same bytes. Replacing a key keeps its position.
Equal ignores entry order; EqualOrdered does not.

**Depth.**
The root compound is at depth 1 and every nested list or compound adds one.
Both the encoder and the decoder reject trees deeper than MaxDepth
(DefaultMaxDepth unless configured).

## Binary encoding

All integers are big-endian. Counts are signed 32-bit; negative counts are
corrupt.

**Named tag**: kind (1 byte), name (string), payload. The stream is exactly
one named tag of kind Compound, normally with an empty name.

**String**: byte length (uint16), then UTF-8 bytes.

**Payloads**:
1. End (0): none; only terminates compounds.
2. Byte (1), Short (2), Int (3), Long (4): two's complement, 1/2/4/8 bytes.
3. Float (5), Double (6): IEEE 754, 4/8 bytes.
4. ByteArray (7), IntArray (11), LongArray (12): count, then elements.
5. String (8): as above.
6. List (9): element kind (1 byte), count, then element payloads without
names. Empty lists may use End as their element kind.
7. Compound (10): named tags, then End.

**Extension kinds** (13 and above) are only decoded when declared through
Extensions with a Shape describing how to skip their payload. Undeclared
kinds fail with ErrUnsupportedTag.
*/
package tagtree
