package transfer

import "github.com/redis/go-redis/v9"

// KEYS: transfer hash, expiry zset, owner set (may be unused).
// ARGV: code, expiry, owner, then field/value pairs for the hash.
var reserveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 4))
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
if ARGV[3] ~= '' then
	redis.call('SADD', KEYS[3], ARGV[1])
end
return 1
`)

// KEYS: transfer hash. ARGV: location, size.
var activateScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') ~= 'pending' then
	return 0
end
redis.call('HSET', KEYS[1], 'location', ARGV[1], 'size', ARGV[2], 'state', 'active')
return 1
`)

// KEYS: transfer hash, expiry zset. ARGV: code, target state, allowed source states...
var transitionScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state then
	return 0
end
local allowed = false
for i = 3, #ARGV do
	if ARGV[i] == state then
		allowed = true
		break
	end
end
if not allowed then
	return 0
end
redis.call('HSET', KEYS[1], 'state', ARGV[2])
if ARGV[2] ~= 'pending' and ARGV[2] ~= 'active' then
	redis.call('ZREM', KEYS[2], ARGV[1])
end
return 1
`)
