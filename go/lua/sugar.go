package lua

// helpers for poking at the process table from the lua builtin
var sugarRc = `
-- 'pid %d' % 1, or '%d/%d' % {a, b}
getmetatable("").__mod = func(fmt, v)
    if type(v) == 'table' then
        return string.format(fmt, unpack(v))
    end
    return string.format(fmt, v)
end

func hex(n) return '0x%x' % n end

-- wait status as init prints it, and the exit code packed inside
func status(s) return '%04x' % s end
func exitcode(s) return int(math.floor(s / 256) % 256) end

func children(pid)
    local out = {}
    for _, p in ipairs(procs()) do
        if p.ppid == pid and p.pid != pid then
            table.insert(out, p.pid)
        end
    end
    return out
end

func waiting()
    local n = 0
    for _, p in ipairs(procs()) do
        if p.state == 'W' then n = n + 1 end
    end
    return n
end
`
