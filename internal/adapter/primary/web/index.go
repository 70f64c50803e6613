package web

const indexHTML = `<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <title>時間読み上げヘルパー</title>
    <style>
        body { font-family: -apple-system, sans-serif; max-width: 720px; margin: 40px auto; padding: 0 20px; color: #222; }
        h1 { margin-bottom: 0; }
        .sub { color: #777; margin-top: 4px; }
        section { background: #f5f5f7; padding: 14px 18px; border-radius: 8px; margin: 16px 0; }
        h2 { font-size: 15px; margin: 0 0 10px; }
        label { display: inline-block; width: 140px; }
        input[type=text] { width: 380px; padding: 6px; }
        button { background: #007aff; color: white; border: none; padding: 8px 16px; border-radius: 6px; cursor: pointer; }
        button:disabled { background: #999; cursor: default; }
        button.secondary { background: #e0e0e5; color: #222; }
        .hint { color: #888; font-size: 12px; }
        #log { max-height: 320px; overflow-y: auto; font-family: Menlo, monospace; font-size: 12px; }
        #log div { padding: 3px 0; border-bottom: 1px solid #e5e5e5; }
        #log .error { color: #d70015; }
        #log .time { color: #888; margin-right: 8px; }
        #running { color: #ff9500; margin-left: 10px; }
    </style>
</head>
<body>
    <h1>時間読み上げヘルパー</h1>
    <p class="sub">音量調整とコマンド実行を管理</p>

    <section>
        <button id="run" onclick="runTest()">実行</button>
        <span id="running" hidden>実行中</span>
    </section>

    <section>
        <h2>一時音量設定</h2>
        <label>音量</label>
        <input type="range" id="volume" min="0" max="100" onchange="update({volume: parseInt(this.value)})" oninput="volumeLabel.textContent = this.value + '%'">
        <span id="volumeLabel"></span>
    </section>

    <section>
        <h2>出力先設定</h2>
        <label>音声出力先</label>
        <select id="device" onchange="update({outputDevice: this.value})"></select>
        <button class="secondary" onclick="post('/api/devices/refresh')">デバイスを更新</button>
    </section>

    <section>
        <h2>実行コマンド</h2>
        <div><label>コマンドパス</label><input type="text" id="commandPath" onchange="setCommandFile(this.value)"></div>
        <div><label>コマンド引数（オプション）</label><input type="text" id="commandArgs" placeholder="引数をスペース区切りで入力" onchange="update({commandArgs: this.value})"></div>
        <p class="hint">例: /usr/bin/open /Applications/Automator/AnnounceTime.app</p>
        <button class="secondary" onclick="post('/api/reset')">デフォルトに戻す</button>
    </section>

    <section>
        <h2>自動実行設定</h2>
        <label>LaunchAgent</label>
        <input type="checkbox" id="schedule" onchange="send('PUT', '/api/schedule', {enabled: this.checked})">
        <span id="scheduleHint" class="hint"></span>
    </section>

    <section>
        <h2>実行ログ</h2>
        <button class="secondary" onclick="post('/api/log/refresh')">更新</button>
        <button class="secondary" onclick="send('DELETE', '/api/log')">クリア</button>
        <div id="log"></div>
    </section>

    <script>
        const $ = (id) => document.getElementById(id);

        function render(s) {
            if (document.activeElement !== $('volume')) {
                $('volume').value = s.volume;
            }
            $('volumeLabel').textContent = s.volume + '%';

            const sel = $('device');
            sel.innerHTML = '';
            sel.add(new Option('デフォルト', ''));
            for (const ep of s.endpoints || []) {
                sel.add(new Option(ep.name, ep.name));
            }
            sel.value = s.outputDevice;

            if (document.activeElement !== $('commandPath')) $('commandPath').value = s.commandPath;
            if (document.activeElement !== $('commandArgs')) $('commandArgs').value = s.commandArgs;

            $('schedule').checked = s.scheduleEnabled;
            $('scheduleHint').textContent = s.scheduleEnabled ? '15分ごとに自動実行されます' : '自動実行は無効です';

            $('run').disabled = s.running;
            $('running').hidden = !s.running;

            const log = $('log');
            log.innerHTML = '';
            if (!s.log || s.log.length === 0) {
                log.innerHTML = '<p class="hint">ログがありません<br>テスト実行するとログが表示されます</p>';
            }
            for (const e of s.log || []) {
                const row = document.createElement('div');
                const time = document.createElement('span');
                time.className = 'time';
                time.textContent = e.timestamp;
                row.appendChild(time);
                row.appendChild(document.createTextNode(e.message + (e.error ? ' [エラー: ' + e.error + ']' : '')));
                if (e.error) row.className = 'error';
                log.appendChild(row);
            }
        }

        async function send(method, path, body) {
            const res = await fetch(path, {
                method: method,
                headers: {'Content-Type': 'application/json'},
                body: body === undefined ? undefined : JSON.stringify(body)
            });
            const data = await res.json();
            if (!res.ok) {
                alert(data.error);
                return;
            }
            render(data);
        }

        const post = (path) => send('POST', path);
        const update = (fields) => send('PUT', '/api/settings', fields);
        const runTest = () => post('/api/run');
        const setCommandFile = (path) => send('POST', '/api/command-file', {path: path});

        function connect() {
            const ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onmessage = (msg) => render(JSON.parse(msg.data).data);
            ws.onclose = () => setTimeout(connect, 2000);
        }

        fetch('/api/state').then((r) => r.json()).then(render);
        connect();
    </script>
</body>
</html>`
